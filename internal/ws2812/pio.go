package ws2812

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Line accepts packed words for the strip.
type Line interface {
	// Push queues one word, blocking while the transmit queue is full.
	Push(ctx context.Context, w uint32) error
	// Latch returns once every queued word has been shifted out and the
	// line has been held low for at least quiet.
	Latch(ctx context.Context, quiet time.Duration) error
}

// DefaultFIFODepth matches a joined TX FIFO on an RP2040 state machine.
const DefaultFIFODepth = 8

// PIOStats counts simulated state machine activity.
type PIOStats struct {
	Words  uint64 `json:"words"`
	Stalls uint64 `json:"stalls"`
	Cycles uint64 `json:"cycles"`
}

// PIO simulates a programmable I/O state machine running the bit program:
// a bounded TX FIFO drained by a shifter that emits CyclesPerBit carrier
// cycles per bit. It runs as fast as the consumer allows; waveform timing is
// tracked in simulated cycles.
type PIO struct {
	Clock   physic.Frequency
	Divider Divider
	// Record keeps the emitted waveform for Waveform.
	Record bool

	fifo chan uint32

	mu      sync.Mutex
	queued  uint64
	shifted uint64
	drained chan struct{}
	wave    BitStream

	stalls atomic.Uint64
	cycles atomic.Uint64
}

// NewPIO configures a state machine for bitRate off clock with a FIFO of
// depth words.
func NewPIO(clock, bitRate physic.Frequency, depth int) (*PIO, error) {
	d, err := NewDivider(clock, bitRate)
	if err != nil {
		return nil, err
	}
	if depth < 1 {
		depth = DefaultFIFODepth
	}
	return &PIO{
		Clock:   clock,
		Divider: d,
		fifo:    make(chan uint32, depth),
		drained: make(chan struct{}),
	}, nil
}

// Run shifts words out of the FIFO until ctx is done.
func (p *PIO) Run(ctx context.Context) error {
	var bits BitStream
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case w := <-p.fifo:
			bits.Reset()
			EncodeWord(&bits, w)
			p.cycles.Add(uint64(bits.Len()))

			p.mu.Lock()
			if p.Record {
				EncodeWord(&p.wave, w)
			}
			p.shifted++
			close(p.drained)
			p.drained = make(chan struct{})
			p.mu.Unlock()
		}
	}
}

func (p *PIO) Push(ctx context.Context, w uint32) error {
	p.mu.Lock()
	p.queued++
	p.mu.Unlock()

	select {
	case p.fifo <- w:
		return nil
	default:
	}
	p.stalls.Add(1)
	select {
	case p.fifo <- w:
		return nil
	case <-ctx.Done():
		p.mu.Lock()
		p.queued--
		p.mu.Unlock()
		return ctx.Err()
	}
}

func (p *PIO) Latch(ctx context.Context, quiet time.Duration) error {
	for {
		p.mu.Lock()
		if p.shifted >= p.queued {
			n := p.Divider.Cycles(p.Clock, quiet)
			if p.Record {
				p.wave.Append(false, int(n))
			}
			p.mu.Unlock()
			p.cycles.Add(uint64(n))
			return nil
		}
		ch := p.drained
		p.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Waveform returns a copy of the recorded waveform and clears it.
func (p *PIO) Waveform() *BitStream {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := &BitStream{buf: append([]byte(nil), p.wave.buf...), n: p.wave.n}
	p.wave.Reset()
	return out
}

// Elapsed is the simulated wire time so far.
func (p *PIO) Elapsed() time.Duration {
	return p.Divider.Elapsed(p.Clock, int64(p.cycles.Load()))
}

func (p *PIO) Stats() PIOStats {
	p.mu.Lock()
	words := p.shifted
	p.mu.Unlock()
	return PIOStats{Words: words, Stalls: p.stalls.Load(), Cycles: p.cycles.Load()}
}
