// Package animation turns a generation change into a timed run of color
// frames, one frame per palette step.
package animation

import (
	"context"
	"fmt"
	"image/color"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/gameoflight/internal/clock"
	"github.com/coreman2200/gameoflight/internal/grid"
	"github.com/coreman2200/gameoflight/internal/mailbox"
	"github.com/coreman2200/gameoflight/internal/palette"
)

// DefaultFrameDelay is the pause between two animation steps.
const DefaultFrameDelay = 15 * time.Millisecond

// ColorFrame is one instant of strip output, indexed by logical LED.
type ColorFrame []color.NRGBA

// Frame writes step i of the prev→cur transition into dst.
// len(dst) must equal len(prev) and len(cur).
func Frame(dst ColorFrame, prev, cur []bool, step int, p *palette.Palette) {
	for led := range dst {
		dst[led] = p.At(palette.Classify(prev[led], cur[led]), step)
	}
}

// Stats counts transcoder activity.
type Stats struct {
	Transitions uint64 `json:"transitions"`
	Abandoned   uint64 `json:"abandoned"`
	Frames      uint64 `json:"frames"`
}

type Transcoder struct {
	Palette *palette.Palette
	Delay   time.Duration
	In      *mailbox.Mailbox[grid.Transition]
	Out     *mailbox.Mailbox[ColorFrame]
	Clock   clock.Sleeper
	Log     zerolog.Logger

	leds        int
	transitions atomic.Uint64
	abandoned   atomic.Uint64
	frames      atomic.Uint64
}

// New wires a transcoder for a strip of leds LEDs.
func New(leds int, p *palette.Palette, in *mailbox.Mailbox[grid.Transition], out *mailbox.Mailbox[ColorFrame]) *Transcoder {
	return &Transcoder{
		Palette: p,
		Delay:   DefaultFrameDelay,
		In:      in,
		Out:     out,
		Clock:   clock.Real{},
		Log:     zerolog.Nop(),
		leds:    leds,
	}
}

// Run consumes transitions until ctx is done. A transition still being
// animated is dropped as soon as a newer one is waiting in the mailbox.
func (t *Transcoder) Run(ctx context.Context) error {
	for {
		tr, err := t.In.Receive(ctx)
		if err != nil {
			return err
		}
		if err := t.Animate(ctx, tr); err != nil {
			return err
		}
	}
}

// Animate publishes the frames of one transition in step order, stopping
// early if a newer transition is pending.
func (t *Transcoder) Animate(ctx context.Context, tr grid.Transition) error {
	if len(tr.Prev) != t.leds || len(tr.Cur) != t.leds {
		return fmt.Errorf("animation: transition has %d/%d cells, want %d", len(tr.Prev), len(tr.Cur), t.leds)
	}
	t.transitions.Add(1)
	n := t.Palette.Steps()
	for i := 0; i < n; i++ {
		if t.In.Pending() {
			t.abandoned.Add(1)
			t.Log.Debug().Uint64("generation", tr.Generation).Int("step", i).Msg("newer generation pending; abandoning animation")
			return nil
		}
		f := make(ColorFrame, t.leds)
		Frame(f, tr.Prev, tr.Cur, i, t.Palette)
		t.Out.Publish(f)
		t.frames.Add(1)
		if err := t.Clock.Sleep(ctx, t.Delay); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transcoder) Stats() Stats {
	return Stats{
		Transitions: t.transitions.Load(),
		Abandoned:   t.abandoned.Load(),
		Frames:      t.frames.Load(),
	}
}
