// Package grid holds the bounded Game of Life board driving the strip.
package grid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrSize is returned when a grid is built with a non-positive dimension.
var ErrSize = errors.New("grid: width and height must be positive")

// neighborOffsets lists the 8-neighborhood as signed (dx, dy) pairs.
var neighborOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Grid is a W×H board of cells stored row-major. Edges do not wrap.
type Grid struct {
	w, h int
	cur  []bool
	nxt  []bool
	rand io.Reader
	buf  []byte
}

// New returns an all-dead grid. src provides random bytes for Randomize;
// nil selects crypto/rand.
func New(w, h int, src io.Reader) (*Grid, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrSize, w, h)
	}
	if src == nil {
		src = rand.Reader
	}
	n := w * h
	return &Grid{
		w:    w,
		h:    h,
		cur:  make([]bool, n),
		nxt:  make([]bool, n),
		rand: src,
		buf:  make([]byte, n),
	}, nil
}

func (g *Grid) Width() int  { return g.w }
func (g *Grid) Height() int { return g.h }
func (g *Grid) Len() int    { return len(g.cur) }

// Randomize draws one byte per cell; a cell lives iff its byte is below p*255.
func (g *Grid) Randomize(p float64) error {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	if _, err := io.ReadFull(g.rand, g.buf); err != nil {
		return fmt.Errorf("grid: read random bytes: %w", err)
	}
	thresh := uint8(p * 255)
	for i, b := range g.buf {
		g.cur[i] = b < thresh
	}
	return nil
}

// Step advances one generation and reports whether any cell changed.
// The next generation is built in a second buffer, then swapped in.
func (g *Grid) Step() bool {
	changed := false
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			i := y*g.w + x
			n := g.Neighbors(x, y)
			alive := g.cur[i]
			next := (alive && (n == 2 || n == 3)) || (!alive && n == 3)
			g.nxt[i] = next
			if next != alive {
				changed = true
			}
		}
	}
	g.cur, g.nxt = g.nxt, g.cur
	return changed
}

// Neighbors counts live cells around (x, y). Out-of-range neighbors count as dead.
func (g *Grid) Neighbors(x, y int) int {
	count := 0
	for _, d := range neighborOffsets {
		nx, ny := x+d[0], y+d[1]
		if !g.InBounds(nx, ny) {
			continue
		}
		if g.cur[ny*g.w+nx] {
			count++
		}
	}
	return count
}

// InBounds reports whether (x, y) addresses a cell of the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.w && y < g.h
}

// NeighborCounts returns the live neighbor count of every cell, row-major.
func (g *Grid) NeighborCounts() []uint8 {
	out := make([]uint8, len(g.cur))
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			out[y*g.w+x] = uint8(g.Neighbors(x, y))
		}
	}
	return out
}

func (g *Grid) Alive(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	return g.cur[y*g.w+x]
}

// Set changes a single cell. Out-of-range coordinates are ignored.
func (g *Grid) Set(x, y int, alive bool) {
	if !g.InBounds(x, y) {
		return
	}
	g.cur[y*g.w+x] = alive
}

// Cells returns a copy of the flattened board.
func (g *Grid) Cells() []bool {
	out := make([]bool, len(g.cur))
	copy(out, g.cur)
	return out
}

// Population is the number of live cells.
func (g *Grid) Population() int {
	n := 0
	for _, c := range g.cur {
		if c {
			n++
		}
	}
	return n
}

// Hash is an order-sensitive fingerprint of the board (h = h*31 + cell).
// Diagnostic only.
func (g *Grid) Hash() uint64 {
	return Hash(g.cur)
}

// Hash fingerprints a flattened board.
func Hash(cells []bool) uint64 {
	var h uint64
	for _, c := range cells {
		var b uint64
		if c {
			b = 1
		}
		h = h*31 + b
	}
	return h
}

// String renders the board as rows of 0/1.
func (g *Grid) String() string {
	var sb strings.Builder
	sb.Grow(len(g.cur) + g.h)
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			if g.cur[y*g.w+x] {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
