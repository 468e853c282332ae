package palette

import "image/color"

// DefaultChannelMilliamps is the draw of one WS2812 channel at full scale.
const DefaultChannelMilliamps = 20.0

// EstimateMilliamps returns the current drawn by a frame, assuming each
// channel draws chanmA at 255 and scales linearly.
func EstimateMilliamps(frame []color.NRGBA, chanmA float64) float64 {
	if chanmA <= 0 {
		chanmA = DefaultChannelMilliamps
	}
	var sum float64
	for _, c := range frame {
		sum += float64(c.R) + float64(c.G) + float64(c.B)
	}
	return sum / 255.0 * chanmA
}

// WorstCaseMilliamps is the draw of leds LEDs all showing the brightest entry
// of the palette.
func (p *Palette) WorstCaseMilliamps(leds int, chanmA float64) float64 {
	var brightest color.NRGBA
	best := -1
	for _, t := range p.tables {
		for _, c := range t {
			if s := int(c.R) + int(c.G) + int(c.B); s > best {
				best, brightest = s, c
			}
		}
	}
	return EstimateMilliamps([]color.NRGBA{brightest}, chanmA) * float64(leds)
}

// Limit scales the whole palette down so that a frame of leds LEDs cannot
// exceed budgetmA. It returns the factor applied (1 when under budget or when
// budgetmA is not positive). Call it before the palette is shared.
func (p *Palette) Limit(leds int, budgetmA, chanmA float64) float64 {
	if budgetmA <= 0 {
		return 1
	}
	total := p.WorstCaseMilliamps(leds, chanmA)
	if total <= budgetmA {
		return 1
	}
	s := budgetmA / total
	for _, t := range p.tables {
		for i := range t {
			t[i].R = uint8(float64(t[i].R) * s)
			t[i].G = uint8(float64(t[i].G) * s)
			t[i].B = uint8(float64(t[i].B) * s)
		}
	}
	return s
}
