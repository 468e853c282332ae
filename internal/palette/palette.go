// Package palette builds the four per-transition color gradients used to
// animate a generation change. A Palette is computed once at startup and is
// read-only afterwards, so it can be shared between goroutines freely.
package palette

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	DefaultSteps         = 50
	DefaultMaxBrightness = 30
	DefaultAlive         = "#8a2be2" // blue violet
	DefaultDead          = "#000000"
)

var ErrSteps = errors.New("palette: steps must be positive")

// Category classifies a cell's (previous, current) state pair.
type Category uint8

const (
	StillDead Category = iota
	DeadToAlive
	AliveToDead
	StillAlive
)

func (c Category) String() string {
	switch c {
	case StillDead:
		return "still-dead"
	case DeadToAlive:
		return "dead-to-alive"
	case AliveToDead:
		return "alive-to-dead"
	case StillAlive:
		return "still-alive"
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

// Classify maps a cell transition to its Category.
func Classify(prev, cur bool) Category {
	switch {
	case prev && cur:
		return StillAlive
	case prev:
		return AliveToDead
	case cur:
		return DeadToAlive
	}
	return StillDead
}

type Options struct {
	Steps         int
	Alive         colorful.Color
	Dead          colorful.Color
	MaxBrightness uint8
}

// DefaultOptions are blue violet on black over 50 steps at brightness 30.
func DefaultOptions() Options {
	alive, _ := colorful.Hex(DefaultAlive)
	dead, _ := colorful.Hex(DefaultDead)
	return Options{
		Steps:         DefaultSteps,
		Alive:         alive,
		Dead:          dead,
		MaxBrightness: DefaultMaxBrightness,
	}
}

type Palette struct {
	steps  int
	tables [4][]color.NRGBA
}

// New fills the alive→dead and dead→alive gradients end-inclusive, holds the
// still tables constant, then scales every entry by MaxBrightness.
func New(o Options) (*Palette, error) {
	if o.Steps <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrSteps, o.Steps)
	}
	p := &Palette{steps: o.Steps}
	p.tables[AliveToDead] = gradient(o.Alive, o.Dead, o.Steps)
	p.tables[DeadToAlive] = gradient(o.Dead, o.Alive, o.Steps)
	p.tables[StillAlive] = constant(o.Alive, o.Steps)
	p.tables[StillDead] = constant(o.Dead, o.Steps)
	for _, t := range p.tables {
		for i := range t {
			t[i] = Scale(t[i], o.MaxBrightness)
		}
	}
	return p, nil
}

// Steps is the animation length N.
func (p *Palette) Steps() int { return p.steps }

// At returns the color for category c at animation step i, clamped to [0, N-1].
func (p *Palette) At(c Category, i int) color.NRGBA {
	if i < 0 {
		i = 0
	}
	if i >= p.steps {
		i = p.steps - 1
	}
	return p.tables[c&3][i]
}

// Table returns a copy of one gradient.
func (p *Palette) Table(c Category) []color.NRGBA {
	out := make([]color.NRGBA, p.steps)
	copy(out, p.tables[c&3])
	return out
}

func gradient(from, to colorful.Color, n int) []color.NRGBA {
	out := make([]color.NRGBA, n)
	for i := range out {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		out[i] = toNRGBA(from.BlendRgb(to, t))
	}
	return out
}

func constant(c colorful.Color, n int) []color.NRGBA {
	out := make([]color.NRGBA, n)
	v := toNRGBA(c)
	for i := range out {
		out[i] = v
	}
	return out
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Scale dims each channel by s/256 with 255 meaning unchanged.
func Scale(c color.NRGBA, s uint8) color.NRGBA {
	return color.NRGBA{
		R: scale8(c.R, s),
		G: scale8(c.G, s),
		B: scale8(c.B, s),
		A: 255,
	}
}

func scale8(v, s uint8) uint8 {
	return uint8((uint16(v) * (1 + uint16(s))) >> 8)
}
