package grid

// Transition is one generation change handed from the simulation to the
// animation stage. Both slices are flattened row-major and must not be
// modified after publication.
type Transition struct {
	Generation uint64
	Prev       []bool
	Cur        []bool
}

// Snapshot is the diagnostic view of a generation.
type Snapshot struct {
	Generation uint64    `json:"generation"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Cells      [][]uint8 `json:"cells"`
	Neighbors  [][]uint8 `json:"neighbors"`
	Hash       uint64    `json:"hash"`
	Alive      int       `json:"alive"`
	Reseeded   bool      `json:"reseeded"`
}

// Snapshot captures the board as 0/1 rows plus per-cell neighbor counts.
func (g *Grid) Snapshot(gen uint64, reseeded bool) Snapshot {
	counts := g.NeighborCounts()
	s := Snapshot{
		Generation: gen,
		Width:      g.w,
		Height:     g.h,
		Cells:      make([][]uint8, g.h),
		Neighbors:  make([][]uint8, g.h),
		Hash:       g.Hash(),
		Alive:      g.Population(),
		Reseeded:   reseeded,
	}
	for y := 0; y < g.h; y++ {
		row := make([]uint8, g.w)
		for x := 0; x < g.w; x++ {
			if g.cur[y*g.w+x] {
				row[x] = 1
			}
		}
		s.Cells[y] = row
		s.Neighbors[y] = counts[y*g.w : (y+1)*g.w]
	}
	return s
}
