package led

import (
	"context"
	"image"
	"sync"
	"time"

	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/gameoflight/internal/ws2812"
)

// ConsoleLine draws each latched frame as one row of pixels on a display.Drawer.
type ConsoleLine struct {
	mu     sync.Mutex
	drawer display.Drawer
	buf    frameBuffer
	img    *image.NRGBA
}

// NewConsoleLine prints to the terminal with ANSI colors.
func NewConsoleLine(count int) *ConsoleLine {
	return NewDrawerLine(screen.New(count), count)
}

// NewDrawerLine renders onto any drawer at least count pixels wide.
func NewDrawerLine(d display.Drawer, count int) *ConsoleLine {
	return &ConsoleLine{
		drawer: d,
		buf:    newFrameBuffer(count),
		img:    image.NewNRGBA(image.Rect(0, 0, count, 1)),
	}
}

func (c *ConsoleLine) Push(ctx context.Context, w uint32) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buf.full() {
		if err := c.draw(); err != nil {
			return err
		}
	}
	c.buf.add(w)
	return nil
}

func (c *ConsoleLine) Latch(ctx context.Context, _ time.Duration) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draw()
}

func (c *ConsoleLine) draw() error {
	for x := 0; x < c.buf.cap; x++ {
		px := ws2812.Unpack(0)
		if x < len(c.buf.words) {
			px = ws2812.Unpack(c.buf.words[x])
		}
		c.img.SetNRGBA(x, 0, px)
	}
	c.buf.reset()
	return c.drawer.Draw(c.drawer.Bounds(), c.img, image.Point{})
}

func (c *ConsoleLine) Close() error {
	return c.drawer.Halt()
}
