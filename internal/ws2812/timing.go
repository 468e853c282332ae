// Package ws2812 encodes color frames into the one-wire NRZ protocol spoken
// by WS2812 LEDs and pushes them to an output Line.
//
// Every data bit spans CyclesPerBit carrier cycles: T1 cycles high (start),
// T2 cycles at the data level, T3 cycles low (stop). A one therefore stays
// high for T1+T2 cycles and a zero only for T1.
package ws2812

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

const (
	T1           = 2
	T2           = 5
	T3           = 3
	CyclesPerBit = T1 + T2 + T3

	// BitsPerLED is the number of data bits shifted out per LED (G, R, B).
	BitsPerLED = 24

	DefaultBitRate = 800 * physic.KiloHertz
	DefaultClock   = 125 * physic.MegaHertz
	// DefaultLatch is the reset low time of WS2812B parts.
	DefaultLatch = 300 * time.Microsecond
	// MinLatch is the shortest low time any WS2812 takes as a reset. Shorter
	// latches are raised to it.
	MinLatch = 50 * time.Microsecond
)

// ErrDivider is returned when no 16.8 divider maps the clock onto the carrier.
var ErrDivider = errors.New("ws2812: clock divider out of range")

// Divider is a 16.8 fixed point clock divider. Int == 0 stands for 65536.
type Divider struct {
	Int  uint32
	Frac uint8
}

// NewDivider derives the divider that makes one encoded bit last exactly
// CyclesPerBit cycles of clock at the given bit rate.
func NewDivider(clock, bitRate physic.Frequency) (Divider, error) {
	if clock <= 0 || bitRate <= 0 {
		return Divider{}, fmt.Errorf("%w: clock %s, bit rate %s", ErrDivider, clock, bitRate)
	}
	bitFreq := bitRate * CyclesPerBit
	n := clock / bitFreq
	rem := clock - n*bitFreq
	frac := (rem * 256) / bitFreq
	if n < 1 || n > 65536 {
		return Divider{}, fmt.Errorf("%w: %s / %s = %d", ErrDivider, clock, bitFreq, int64(n))
	}
	if n == 65536 {
		n = 0
	}
	return Divider{Int: uint32(n), Frac: uint8(frac)}, nil
}

// Register is the packed divider word: Int<<8 | Frac.
func (d Divider) Register() uint32 {
	return d.Int<<8 | uint32(d.Frac)
}

// scaled is the divisor times 256.
func (d Divider) scaled() int64 {
	n := int64(d.Int)
	if n == 0 {
		n = 65536
	}
	return n*256 + int64(d.Frac)
}

// Elapsed is the wall time taken by cycles carrier cycles when the state
// machine runs off clock through d.
func (d Divider) Elapsed(clock physic.Frequency, cycles int64) time.Duration {
	hz := int64(clock / physic.Hertz)
	if hz <= 0 {
		return 0
	}
	q, den := cycles*d.scaled(), hz*256
	secs, rem := q/den, q%den
	return time.Duration(secs)*time.Second + time.Duration(float64(rem)*float64(time.Second)/float64(den))
}

// CycleDuration is the length of one carrier cycle.
func (d Divider) CycleDuration(clock physic.Frequency) time.Duration {
	return d.Elapsed(clock, 1)
}

// Cycles is the number of carrier cycles covering at least dur.
func (d Divider) Cycles(clock physic.Frequency, dur time.Duration) int64 {
	per := d.CycleDuration(clock)
	if per <= 0 {
		return 0
	}
	return int64((dur + per - 1) / per)
}
