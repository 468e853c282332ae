package selftest

import (
	"context"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/gameoflight/internal/animation"
	"github.com/coreman2200/gameoflight/internal/clock"
	"github.com/coreman2200/gameoflight/internal/layout"
)

var (
	dark  = color.NRGBA{A: 0xff}
	small = layout.Layout{Dim: layout.Dim{X: 3, Y: 2}}
)

func lit(f animation.ColorFrame) []int {
	var out []int
	for i, c := range f {
		if c != dark {
			out = append(out, i)
		}
	}
	return out
}

func TestIndexSweepFollowsAddresses(t *testing.T) {
	l := small
	l.Order.XFlipEveryRow = true
	r := NewRunner(Plan{Kind: IndexSweep, Level: 40})
	f := make(animation.ColorFrame, l.Count())

	var order []int
	for r.Step(l, f) {
		idx := lit(f)
		require.Len(t, idx, 1)
		assert.Equal(t, color.NRGBA{R: 40, G: 40, B: 40, A: 0xff}, f[idx[0]])
		order = append(order, idx[0])
	}
	assert.Equal(t, []int{0, 1, 2, 5, 4, 3}, order)
}

func TestRGBTestCyclesChannelsOnce(t *testing.T) {
	r := NewRunner(Plan{Kind: RGBTest})
	f := make(animation.ColorFrame, small.Count())
	want := []color.NRGBA{{R: 255, A: 255}, {G: 255, A: 255}, {B: 255, A: 255}}
	for _, w := range want {
		require.True(t, r.Step(small, f))
		for _, c := range f {
			assert.Equal(t, w, c)
		}
	}
	assert.False(t, r.Step(small, f))
}

func TestRowSweep(t *testing.T) {
	r := NewRunner(Plan{Kind: RowSweep})
	f := make(animation.ColorFrame, small.Count())
	require.True(t, r.Step(small, f))
	assert.Equal(t, []int{0, 1, 2}, lit(f))
	require.True(t, r.Step(small, f))
	assert.Equal(t, []int{3, 4, 5}, lit(f))
	assert.False(t, r.Step(small, f))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("rgb_channels")
	require.NoError(t, err)
	assert.Equal(t, RGBTest, k)
	_, err = ParseKind("disco")
	assert.Error(t, err)
}

type frames struct{ got []animation.ColorFrame }

func (w *frames) Write(_ context.Context, f animation.ColorFrame) error {
	w.got = append(w.got, f)
	return nil
}

func TestPlayEndsDark(t *testing.T) {
	w := &frames{}
	rec := &clock.Recorder{}
	n, err := Play(context.Background(), Plan{Kind: RGBTest}, small, w, rec, 250*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, w.got, 4)
	assert.Empty(t, lit(w.got[3]))
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond}, rec.Slept)
}

func TestPlayNoneWritesNothing(t *testing.T) {
	w := &frames{}
	n, err := Play(context.Background(), Plan{}, small, w, &clock.Recorder{}, time.Second)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, w.got)
}
