package ws2812

import (
	"errors"
	"fmt"
	"image/color"
)

// ErrWaveform is returned by Decode for a waveform that does not follow the
// T1/T2/T3 bit shape.
var ErrWaveform = errors.New("ws2812: malformed waveform")

// Pack lays a color out as the 32-bit word shifted MSB first: G in bits
// 31..24, R in 23..16, B in 15..8. The low byte is never transmitted.
// FrameCycles is the number of carrier cycles taken by the data bits of leds
// LEDs, latch excluded.
func FrameCycles(leds int) int { return leds * BitsPerLED * CyclesPerBit }

func Pack(c color.NRGBA) uint32 {
	return uint32(c.G)<<24 | uint32(c.R)<<16 | uint32(c.B)<<8
}

// Unpack is the inverse of Pack.
func Unpack(w uint32) color.NRGBA {
	return color.NRGBA{G: uint8(w >> 24), R: uint8(w >> 16), B: uint8(w >> 8), A: 0xff}
}

// BitStream is a line level sampled once per carrier cycle, packed MSB first.
type BitStream struct {
	buf []byte
	n   int
}

// Append adds count samples at the given level.
func (b *BitStream) Append(high bool, count int) {
	for i := 0; i < count; i++ {
		if b.n%8 == 0 {
			b.buf = append(b.buf, 0)
		}
		if high {
			b.buf[b.n/8] |= 0x80 >> (b.n % 8)
		}
		b.n++
	}
}

// Len is the number of samples.
func (b *BitStream) Len() int { return b.n }

// Level reports the sample at cycle i.
func (b *BitStream) Level(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.buf[i/8]&(0x80>>(i%8)) != 0
}

// Bytes returns the packed samples; the last byte is zero padded.
func (b *BitStream) Bytes() []byte { return b.buf }

func (b *BitStream) Reset() {
	b.buf = b.buf[:0]
	b.n = 0
}

// HighCycles counts the samples at the high level.
func (b *BitStream) HighCycles() int {
	n := 0
	for i := 0; i < b.n; i++ {
		if b.Level(i) {
			n++
		}
	}
	return n
}

// EncodeBit appends one data bit: T1 high, T2 at the bit level, T3 low.
func EncodeBit(b *BitStream, bit bool) {
	b.Append(true, T1)
	b.Append(bit, T2)
	b.Append(false, T3)
}

// EncodeWord appends the BitsPerLED high bits of w, MSB first.
func EncodeWord(b *BitStream, w uint32) {
	for i := 0; i < BitsPerLED; i++ {
		EncodeBit(b, w&(1<<31) != 0)
		w <<= 1
	}
}

// Decode recovers the words carried by b. Decoding stops at the first bit
// period that starts low; every sample from there on must be low (the latch).
func Decode(b *BitStream) ([]uint32, error) {
	var (
		out  []uint32
		w    uint32
		bits int
	)
	i := 0
	for ; i+CyclesPerBit <= b.n; i += CyclesPerBit {
		if !b.Level(i) {
			break
		}
		bit, err := decodeBit(b, i)
		if err != nil {
			return out, err
		}
		w <<= 1
		if bit {
			w |= 1
		}
		bits++
		if bits == BitsPerLED {
			out = append(out, w<<8)
			w, bits = 0, 0
		}
	}
	if bits != 0 {
		return out, fmt.Errorf("%w: %d trailing bits at cycle %d", ErrWaveform, bits, i)
	}
	for ; i < b.n; i++ {
		if b.Level(i) {
			return out, fmt.Errorf("%w: high sample at cycle %d after latch", ErrWaveform, i)
		}
	}
	return out, nil
}

func decodeBit(b *BitStream, at int) (bool, error) {
	for k := 0; k < T1; k++ {
		if !b.Level(at + k) {
			return false, fmt.Errorf("%w: start pulse low at cycle %d", ErrWaveform, at+k)
		}
	}
	bit := b.Level(at + T1)
	for k := 1; k < T2; k++ {
		if b.Level(at+T1+k) != bit {
			return false, fmt.Errorf("%w: data level changes at cycle %d", ErrWaveform, at+T1+k)
		}
	}
	for k := 0; k < T3; k++ {
		if b.Level(at + T1 + T2 + k) {
			return false, fmt.Errorf("%w: stop pulse high at cycle %d", ErrWaveform, at+T1+T2+k)
		}
	}
	return bit, nil
}

// NewBitStream wraps samples captured MSB first, eight per byte.
func NewBitStream(b []byte) *BitStream {
	return &BitStream{buf: append([]byte(nil), b...), n: len(b) * 8}
}
