package animation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/gameoflight/internal/clock"
	"github.com/coreman2200/gameoflight/internal/grid"
	"github.com/coreman2200/gameoflight/internal/mailbox"
	"github.com/coreman2200/gameoflight/internal/palette"
)

func testPalette(t *testing.T, steps int) *palette.Palette {
	t.Helper()
	o := palette.DefaultOptions()
	o.Steps = steps
	p, err := palette.New(o)
	require.NoError(t, err)
	return p
}

// one LED per category: still-alive, alive-to-dead, dead-to-alive, still-dead
var (
	prev = []bool{true, true, false, false}
	cur  = []bool{true, false, true, false}
	cats = []palette.Category{palette.StillAlive, palette.AliveToDead, palette.DeadToAlive, palette.StillDead}
)

func TestFrameUsesCategoryTables(t *testing.T) {
	p := testPalette(t, 10)
	for _, step := range []int{0, 9, 10, 25} {
		dst := make(ColorFrame, 4)
		Frame(dst, prev, cur, step, p)
		for led, c := range cats {
			want := p.Table(c)[min(step, 9)]
			assert.Equal(t, want, dst[led], "led %d (%s) step %d", led, c, step)
		}
	}
}

func newTranscoder(t *testing.T, steps int) (*Transcoder, *clock.Recorder) {
	p := testPalette(t, steps)
	tc := New(4, p, mailbox.New[grid.Transition](), mailbox.New[ColorFrame]())
	rec := &clock.Recorder{}
	tc.Clock = rec
	tc.Delay = 12 * time.Millisecond
	return tc, rec
}

func TestAnimatePublishesEveryStepInOrder(t *testing.T) {
	tc, rec := newTranscoder(t, 5)
	var got []ColorFrame
	rec.Hook = func(int) {
		f, ok := tc.Out.TryReceive()
		require.True(t, ok)
		got = append(got, f)
	}

	require.NoError(t, tc.Animate(context.Background(), grid.Transition{Prev: prev, Cur: cur}))

	require.Len(t, got, 5)
	for i, f := range got {
		want := make(ColorFrame, 4)
		Frame(want, prev, cur, i, tc.Palette)
		assert.Equal(t, want, f, "frame %d", i)
	}
	assert.Equal(t, 5, rec.Calls())
	for _, d := range rec.Slept {
		assert.Equal(t, 12*time.Millisecond, d)
	}
	assert.Equal(t, Stats{Transitions: 1, Frames: 5}, tc.Stats())
}

func TestAnimateAbandonsStaleTransition(t *testing.T) {
	tc, rec := newTranscoder(t, 50)
	rec.Hook = func(n int) {
		if n == 3 {
			tc.In.Publish(grid.Transition{Generation: 2, Prev: cur, Cur: prev})
		}
	}

	require.NoError(t, tc.Animate(context.Background(), grid.Transition{Generation: 1, Prev: prev, Cur: cur}))

	assert.Equal(t, 3, rec.Calls(), "stops before emitting step 3")
	assert.Equal(t, Stats{Transitions: 1, Abandoned: 1, Frames: 3}, tc.Stats())
	assert.True(t, tc.In.Pending(), "newer transition left for Run to consume")
}

func TestRunConsumesNewestTransition(t *testing.T) {
	tc, rec := newTranscoder(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var last ColorFrame
	rec.Hook = func(n int) {
		if n == 2 {
			tc.In.Publish(grid.Transition{Generation: 2, Prev: cur, Cur: cur})
		}
		last, _ = tc.Out.TryReceive()
		if n == 2+4 {
			cancel()
		}
	}

	tc.In.Publish(grid.Transition{Generation: 1, Prev: prev, Cur: cur})
	err := tc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	want := make(ColorFrame, 4)
	Frame(want, cur, cur, 3, tc.Palette)
	assert.Equal(t, want, last)
	assert.Equal(t, Stats{Transitions: 2, Abandoned: 1, Frames: 6}, tc.Stats())
}

func TestAnimateRejectsWrongLength(t *testing.T) {
	tc, _ := newTranscoder(t, 3)
	err := tc.Animate(context.Background(), grid.Transition{Prev: []bool{true}, Cur: []bool{false}})
	assert.Error(t, err)
}
