// Package led holds the physical and console sinks behind a ws2812.Line.
package led

import (
	"context"
	"time"

	"github.com/coreman2200/gameoflight/internal/ws2812"
)

// Output is a Line that owns a device.
type Output interface {
	ws2812.Line
	// Close blanks the strip and releases the device.
	Close() error
}

var (
	_ Output = (*SPILine)(nil)
	_ Output = (*NRZLine)(nil)
	_ Output = (*ConsoleLine)(nil)
)

// frameBuffer collects pushed words until a latch, bounded at cap words.
type frameBuffer struct {
	words []uint32
	cap   int
}

func newFrameBuffer(n int) frameBuffer {
	return frameBuffer{words: make([]uint32, 0, n), cap: n}
}

func (b *frameBuffer) full() bool { return len(b.words) >= b.cap }

func (b *frameBuffer) add(w uint32) { b.words = append(b.words, w) }

func (b *frameBuffer) reset() { b.words = b.words[:0] }

// rgb lays the buffered words out as R,G,B triplets.
func (b *frameBuffer) rgb(dst []byte) []byte {
	dst = dst[:0]
	for _, w := range b.words {
		c := ws2812.Unpack(w)
		dst = append(dst, c.R, c.G, c.B)
	}
	return dst
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// quietBytes is the number of zero bytes holding an SPI carrier of period
// per low for at least quiet.
func quietBytes(quiet, per time.Duration) int {
	if per <= 0 {
		return 0
	}
	bits := int((quiet + per - 1) / per)
	return (bits + 7) / 8
}
