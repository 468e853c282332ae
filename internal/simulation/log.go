package simulation

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/coreman2200/gameoflight/internal/grid"
)

// LogObserver dumps every generation at debug level: one line per row with
// the cells and their live-neighbor counts, then the hash.
type LogObserver struct {
	Log zerolog.Logger
}

func (l LogObserver) Observe(s grid.Snapshot) {
	e := l.Log.Debug()
	if !e.Enabled() {
		return
	}
	e.Discard()
	for y := range s.Cells {
		l.Log.Debug().Uint64("generation", s.Generation).Int("row", y).
			Msgf("%s| NGHB :%s|", digits(s.Cells[y]), digits(s.Neighbors[y]))
	}
	l.Log.Debug().Uint64("generation", s.Generation).Int("alive", s.Alive).Bool("reseeded", s.Reseeded).
		Msgf("HASH:%d", s.Hash)
}

func digits(row []uint8) string {
	var sb strings.Builder
	sb.Grow(len(row))
	for _, v := range row {
		sb.WriteByte('0' + v)
	}
	return sb.String()
}
