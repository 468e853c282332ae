// Package layout maps grid cells onto the physical position of each LED on
// the strip.
package layout

type Dim struct{ X, Y int }

type Serpentine struct {
	// XFlipEveryRow reverses odd rows, for strips folded back and forth.
	XFlipEveryRow bool
}

type Layout struct {
	Dim   Dim
	Order Serpentine
}

// Index maps x,y -> strip address (0..N-1)
func (l Layout) Index(x, y int) int {
	xx := x
	if (y%2 == 1) && l.Order.XFlipEveryRow {
		xx = l.Dim.X - 1 - x
	}
	return y*l.Dim.X + xx
}

func (l Layout) Count() int {
	return l.Dim.X * l.Dim.Y
}

// Addresses returns, for each strip address, the row-major cell index shown
// there. A nil slice means address and cell index coincide.
func (l Layout) Addresses() []int {
	if !l.Order.XFlipEveryRow {
		return nil
	}
	out := make([]int, l.Count())
	for y := 0; y < l.Dim.Y; y++ {
		for x := 0; x < l.Dim.X; x++ {
			out[l.Index(x, y)] = y*l.Dim.X + x
		}
	}
	return out
}
