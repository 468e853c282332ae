package led

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/nrzled"
)

// DefaultNRZFreq is the SPI clock nrzled needs to emit 800kHz WS2812 bits.
const DefaultNRZFreq = 2500 * physic.KiloHertz

// NRZLine hands whole frames to periph's nrzled driver, which does its own
// bit expansion and latch.
type NRZLine struct {
	mu     sync.Mutex
	dev    *nrzled.Dev
	closer interface{ Close() error }
	buf    frameBuffer
	rgb    []byte
}

func NewNRZLine(p spi.Port, count int, freq physic.Frequency) (*NRZLine, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", count)
	}
	if freq <= 0 {
		freq = DefaultNRZFreq
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: count, Channels: 3, Freq: freq})
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	n := &NRZLine{dev: d, buf: newFrameBuffer(count), rgb: make([]byte, 0, count*3)}
	if pc, ok := p.(spi.PortCloser); ok {
		n.closer = pc
	}
	return n, nil
}

// Push buffers w. A frame longer than the strip is written out early.
func (n *NRZLine) Push(ctx context.Context, w uint32) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dev == nil {
		return fmt.Errorf("nrzled closed")
	}
	if n.buf.full() {
		if err := n.flush(); err != nil {
			return err
		}
	}
	n.buf.add(w)
	return nil
}

// Latch writes the buffered frame. nrzled appends its own reset time, so
// quiet is not used.
func (n *NRZLine) Latch(ctx context.Context, _ time.Duration) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dev == nil {
		return fmt.Errorf("nrzled closed")
	}
	return n.flush()
}

func (n *NRZLine) flush() error {
	n.rgb = n.buf.rgb(n.rgb)
	n.buf.reset()
	if _, err := n.dev.Write(n.rgb); err != nil {
		return fmt.Errorf("nrzled write: %w", err)
	}
	return nil
}

func (n *NRZLine) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dev == nil {
		return nil
	}
	err := n.dev.Halt()
	n.dev = nil
	if n.closer != nil {
		if cerr := n.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
