package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes emitted by the pipeline.
const (
	CodeReseed   = "GRID.RESEED"
	CodeFallback = "DRIVER.FALLBACK"
	CodeSelfTest = "SELFTEST.DONE"
	CodeStall    = "RENDER.STALL"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
	At             time.Time      `json:"at"`
}

// Reseed reports a generation that reproduced its predecessor.
func Reseed(gen uint64, hash uint64, alive int) Diagnostic {
	return Diagnostic{
		Severity:     Info,
		Code:         CodeReseed,
		Summary:      "grid reached a fixed point; reseeding",
		LikelyCauses: []string{"all cells dead", "only still lifes remain"},
		Evidence: map[string]any{
			"generation": gen,
			"hash":       hash,
			"alive":      alive,
		},
		At: time.Now(),
	}
}

// Fallback reports that the requested output could not be opened.
func Fallback(want, got string, err error) Diagnostic {
	d := Diagnostic{
		Severity: Warn,
		Code:     CodeFallback,
		Summary:  "LED driver " + want + " unavailable; using " + got,
		LikelyCauses: []string{
			"SPI not enabled (dtparam=spi=on)",
			"no permission on /dev/spidev*",
			"not running on the target board",
		},
		SuggestedFixes: []string{"check the spi.dev setting", "run with -driver console to preview"},
		Evidence:       map[string]any{"requested": want, "using": got},
		At:             time.Now(),
	}
	if err != nil {
		d.Detail = err.Error()
	}
	return d
}

// SelfTest reports a finished startup pattern.
func SelfTest(pattern string, frames int, err error) Diagnostic {
	d := Diagnostic{
		Severity: Info,
		Code:     CodeSelfTest,
		Summary:  "self-test " + pattern + " finished",
		Evidence: map[string]any{"pattern": pattern, "frames": frames},
		At:       time.Now(),
	}
	if err != nil {
		d.Severity = Err
		d.Detail = err.Error()
		d.SuggestedFixes = []string{"check strip power and data line"}
	}
	return d
}

// Stall reports the renderer falling behind the line.
func Stall(stalls, words uint64) Diagnostic {
	return Diagnostic{
		Severity:     Warn,
		Code:         CodeStall,
		Summary:      "output FIFO full; renderer waited on the line",
		LikelyCauses: []string{"bit rate too low for the frame delay"},
		Evidence:     map[string]any{"stalls": stalls, "words": words},
		At:           time.Now(),
	}
}
