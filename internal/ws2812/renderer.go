package ws2812

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/gameoflight/internal/animation"
	"github.com/coreman2200/gameoflight/internal/clock"
	"github.com/coreman2200/gameoflight/internal/mailbox"
)

// RendererStats counts frames written to the line.
type RendererStats struct {
	Frames  uint64 `json:"frames"`
	Words   uint64 `json:"words"`
	Errors  uint64 `json:"errors"`
	Waited  uint64 `json:"latch_waits"`
	LastLen int    `json:"last_len"`
}

// Renderer writes color frames to a Line, one packed word per LED followed by
// a latch. Consecutive frames are at least Latch apart, and never less than
// MinLatch.
type Renderer struct {
	Line  Line
	Latch time.Duration
	// Order maps strip address to logical LED index. Nil is the identity.
	Order []int
	In    *mailbox.Mailbox[animation.ColorFrame]
	// Tap, if set, receives every frame after it has been latched.
	Tap   *mailbox.Mailbox[animation.ColorFrame]
	Clock clock.Sleeper
	Now   func() time.Time
	Log   zerolog.Logger

	leds    int
	lastEnd time.Time

	frames atomic.Uint64
	words  atomic.Uint64
	errs   atomic.Uint64
	waited atomic.Uint64
	last   atomic.Int64
}

func NewRenderer(leds int, line Line, in *mailbox.Mailbox[animation.ColorFrame]) *Renderer {
	return &Renderer{
		Line:  line,
		Latch: DefaultLatch,
		In:    in,
		Clock: clock.Real{},
		Now:   time.Now,
		Log:   zerolog.Nop(),
		leds:  leds,
	}
}

// Run renders the newest frame from In until ctx is done. A failed write is
// logged and the next frame is tried.
func (r *Renderer) Run(ctx context.Context) error {
	for {
		f, err := r.In.Receive(ctx)
		if err != nil {
			return err
		}
		if err := r.Write(ctx, f); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.errs.Add(1)
			r.Log.Error().Err(err).Msg("frame write failed")
		}
	}
}

// Write pushes one frame and latches it. Write is not safe for concurrent use.
func (r *Renderer) Write(ctx context.Context, f animation.ColorFrame) error {
	if len(f) != r.leds {
		return fmt.Errorf("ws2812: frame has %d colors, want %d", len(f), r.leds)
	}
	if r.Order != nil && len(r.Order) != r.leds {
		return fmt.Errorf("ws2812: address order has %d entries, want %d", len(r.Order), r.leds)
	}
	latch := r.latch()
	if !r.lastEnd.IsZero() {
		if gap := latch - r.Now().Sub(r.lastEnd); gap > 0 {
			r.waited.Add(1)
			if err := r.Clock.Sleep(ctx, gap); err != nil {
				return err
			}
		}
	}
	for addr := 0; addr < r.leds; addr++ {
		idx := addr
		if r.Order != nil {
			idx = r.Order[addr]
		}
		if err := r.Line.Push(ctx, Pack(f[idx])); err != nil {
			return err
		}
		r.words.Add(1)
	}
	if err := r.Line.Latch(ctx, latch); err != nil {
		return err
	}
	r.lastEnd = r.Now()
	r.frames.Add(1)
	r.last.Store(int64(len(f)))
	if r.Tap != nil {
		r.Tap.Publish(f)
	}
	return nil
}

func (r *Renderer) latch() time.Duration {
	if r.Latch < MinLatch {
		return MinLatch
	}
	return r.Latch
}

func (r *Renderer) Stats() RendererStats {
	return RendererStats{
		Frames:  r.frames.Load(),
		Words:   r.words.Load(),
		Errors:  r.errs.Load(),
		Waited:  r.waited.Load(),
		LastLen: int(r.last.Load()),
	}
}
