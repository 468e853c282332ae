package led

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/coreman2200/gameoflight/internal/ws2812"
)

// ErrFrameTooLarge is returned when one frame does not fit a single transfer
// on the port. Splitting it would leave MOSI idle mid-frame, which the strip
// may take as a latch.
var ErrFrameTooLarge = errors.New("led: frame exceeds the SPI transfer limit")

// SPIFrameBytes is the size of the transfer carrying one frame of count LEDs.
func SPIFrameBytes(count int) int { return (ws2812.FrameCycles(count) + 7) / 8 }

// SPILine drives the strip from an SPI MOSI pin clocked at CyclesPerBit times
// the bit rate, so each SPI bit is one carrier cycle of the waveform.
type SPILine struct {
	mu      sync.Mutex
	port    spi.Port
	closer  interface{ Close() error }
	conn    spi.Conn
	carrier physic.Frequency
	maxTx   int

	buf  frameBuffer
	bits ws2812.BitStream
}

// NewSPILine connects to p for a strip of count LEDs at bitRate (0 means
// ws2812.DefaultBitRate). If p is also an spi.PortCloser, Close closes it.
// Ports reporting conn.Limits must take a whole frame in one transfer.
func NewSPILine(p spi.Port, count int, bitRate physic.Frequency) (*SPILine, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", count)
	}
	if bitRate <= 0 {
		bitRate = ws2812.DefaultBitRate
	}
	carrier := bitRate * ws2812.CyclesPerBit
	c, err := p.Connect(carrier, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("spi connect: %w", err)
	}
	s := &SPILine{port: p, conn: c, carrier: carrier, buf: newFrameBuffer(count)}
	if l, ok := c.(conn.Limits); ok {
		s.maxTx = l.MaxTxSize()
		if need := SPIFrameBytes(count); s.maxTx > 0 && need > s.maxTx {
			return nil, fmt.Errorf("%w: %d LEDs need %d bytes, %s takes %d", ErrFrameTooLarge, count, need, p, s.maxTx)
		}
	}
	if pc, ok := p.(spi.PortCloser); ok {
		s.closer = pc
	}
	return s, nil
}

// Push encodes w into the pending transfer. A frame longer than the strip is
// flushed early rather than dropped.
func (s *SPILine) Push(ctx context.Context, w uint32) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("SPI closed")
	}
	if s.buf.full() {
		if err := s.flush(); err != nil {
			return err
		}
	}
	s.buf.add(w)
	ws2812.EncodeWord(&s.bits, w)
	return nil
}

// Latch sends the pending words in one transfer, then holds MOSI low for
// quiet with a zero tail.
func (s *SPILine) Latch(ctx context.Context, quiet time.Duration) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("SPI closed")
	}
	if err := s.flush(); err != nil {
		return err
	}
	// MOSI idles low, so the tail may span several transfers.
	for n := quietBytes(quiet, s.carrier.Period()); n > 0; {
		chunk := n
		if s.maxTx > 0 && chunk > s.maxTx {
			chunk = s.maxTx
		}
		if err := s.conn.Tx(make([]byte, chunk), nil); err != nil {
			return fmt.Errorf("spi latch: %w", err)
		}
		n -= chunk
	}
	return nil
}

func (s *SPILine) flush() error {
	defer func() {
		s.buf.reset()
		s.bits.Reset()
	}()
	if s.bits.Len() == 0 {
		return nil
	}
	if err := s.conn.Tx(s.bits.Bytes(), nil); err != nil {
		return fmt.Errorf("spi write: %w", err)
	}
	return nil
}

// Close blanks the strip and closes the port if owned.
func (s *SPILine) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	s.buf.reset()
	s.bits.Reset()
	for i := 0; i < s.buf.cap; i++ {
		ws2812.EncodeWord(&s.bits, 0)
	}
	err := s.flush()
	s.conn = nil
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *SPILine) String() string {
	return fmt.Sprintf("ws2812-spi{%s}", s.port)
}
