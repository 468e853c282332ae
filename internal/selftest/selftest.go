// Package selftest drives fixed diagnostic patterns onto the strip before
// the automaton starts, to check wiring, channel order and layout.
package selftest

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"github.com/coreman2200/gameoflight/internal/animation"
	"github.com/coreman2200/gameoflight/internal/clock"
	"github.com/coreman2200/gameoflight/internal/layout"
)

type Kind string

const (
	None       Kind = ""
	IndexSweep Kind = "index_sweep"
	RGBTest    Kind = "rgb_channels"
	RowSweep   Kind = "row_sweep"
	AllOff     Kind = "all_off"
)

// ParseKind accepts the config spelling of a pattern.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case None, IndexSweep, RGBTest, RowSweep, AllOff:
		return k, nil
	}
	return None, fmt.Errorf("selftest: unknown pattern %q", s)
}

type Plan struct {
	Kind Kind
	// Level is the channel value used for lit LEDs.
	Level uint8
}

type Runner struct {
	plan Plan
	step int
}

func NewRunner(plan Plan) *Runner {
	if plan.Level == 0 {
		plan.Level = 255
	}
	return &Runner{plan: plan}
}

func (r *Runner) Kind() Kind { return r.plan.Kind }

// Step fills f (logical cell order); returns false when complete.
func (r *Runner) Step(l layout.Layout, f animation.ColorFrame) bool {
	n := l.Count()
	for i := range f {
		f[i] = color.NRGBA{A: 0xff}
	}
	v := r.plan.Level

	switch r.plan.Kind {
	case IndexSweep:
		addr := r.step
		if addr >= n {
			return false
		}
		idx := addr
		if a := l.Addresses(); a != nil {
			idx = a[addr]
		}
		f[idx] = color.NRGBA{R: v, G: v, B: v, A: 0xff}
	case RGBTest:
		if r.step >= 3 {
			return false
		}
		for i := 0; i < n; i++ {
			switch r.step {
			case 0:
				f[i].R = v
			case 1:
				f[i].G = v
			case 2:
				f[i].B = v
			}
		}
	case RowSweep:
		y := r.step
		if y >= l.Dim.Y {
			return false
		}
		for i := y * l.Dim.X; i < (y+1)*l.Dim.X; i++ {
			f[i].G, f[i].B = v, v // cyan
		}
	case AllOff:
		if r.step >= 1 {
			return false
		}
	default:
		return false
	}
	r.step++
	return true
}

// Writer accepts one frame at a time; ws2812.Renderer satisfies it.
type Writer interface {
	Write(ctx context.Context, f animation.ColorFrame) error
}

// Play runs plan to completion, holding each frame for hold, then blanks
// the strip. It returns the number of pattern frames shown.
func Play(ctx context.Context, plan Plan, l layout.Layout, w Writer, s clock.Sleeper, hold time.Duration) (int, error) {
	r := NewRunner(plan)
	shown := 0
	for {
		f := make(animation.ColorFrame, l.Count())
		if !r.Step(l, f) {
			break
		}
		if err := w.Write(ctx, f); err != nil {
			return shown, err
		}
		shown++
		if err := s.Sleep(ctx, hold); err != nil {
			return shown, err
		}
	}
	if shown == 0 {
		return 0, nil
	}
	off := make(animation.ColorFrame, l.Count())
	for i := range off {
		off[i] = color.NRGBA{A: 0xff}
	}
	return shown, w.Write(ctx, off)
}
