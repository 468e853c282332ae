package palette

import (
	"image/color"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	violet = color.NRGBA{R: 16, G: 5, B: 27, A: 255} // #8a2be2 scaled by 30
	black  = color.NRGBA{A: 255}
)

func TestClassify(t *testing.T) {
	assert.Equal(t, StillAlive, Classify(true, true))
	assert.Equal(t, AliveToDead, Classify(true, false))
	assert.Equal(t, DeadToAlive, Classify(false, true))
	assert.Equal(t, StillDead, Classify(false, false))
}

func TestDefaultPalette(t *testing.T) {
	p, err := New(DefaultOptions())
	require.NoError(t, err)
	n := p.Steps()
	require.Equal(t, DefaultSteps, n)

	var TestEndpoints = []struct {
		Cat   Category
		First color.NRGBA
		Last  color.NRGBA
	}{
		{StillAlive, violet, violet},
		{StillDead, black, black},
		{AliveToDead, violet, black},
		{DeadToAlive, black, violet},
	}
	for _, v := range TestEndpoints {
		t.Run(v.Cat.String(), func(t *testing.T) {
			assert.Equal(t, v.First, p.At(v.Cat, 0))
			assert.Equal(t, v.Last, p.At(v.Cat, n-1))
			assert.Equal(t, v.Last, p.At(v.Cat, n), "clamped past the end")
			assert.Equal(t, v.Last, p.At(v.Cat, n+100))
			assert.Equal(t, v.First, p.At(v.Cat, -3))
		})
	}
}

func TestGradientIsMonotonic(t *testing.T) {
	p, err := New(DefaultOptions())
	require.NoError(t, err)
	fade := p.Table(AliveToDead)
	for i := 1; i < len(fade); i++ {
		assert.LessOrEqual(t, fade[i].B, fade[i-1].B, "step %d", i)
	}
}

func TestSingleStepPalette(t *testing.T) {
	o := DefaultOptions()
	o.Steps = 1
	p, err := New(o)
	require.NoError(t, err)
	assert.Equal(t, violet, p.At(AliveToDead, 0))
	assert.Equal(t, black, p.At(DeadToAlive, 5))
}

func TestNewRejectsZeroSteps(t *testing.T) {
	o := DefaultOptions()
	o.Steps = 0
	_, err := New(o)
	assert.ErrorIs(t, err, ErrSteps)
}

func TestScale(t *testing.T) {
	c := color.NRGBA{R: 255, G: 128, B: 0, A: 255}
	assert.Equal(t, c, Scale(c, 255))
	assert.Equal(t, color.NRGBA{A: 255}, Scale(c, 0))
	assert.Equal(t, color.NRGBA{R: 127, G: 64, A: 255}, Scale(c, 127))
}

func TestLimitKeepsWorstCaseUnderBudget(t *testing.T) {
	o := DefaultOptions()
	o.MaxBrightness = 255
	p, err := New(o)
	require.NoError(t, err)

	before := p.WorstCaseMilliamps(136, DefaultChannelMilliamps)
	require.Greater(t, before, 1000.0)

	s := p.Limit(136, 1000, DefaultChannelMilliamps)
	assert.Less(t, s, 1.0)
	assert.LessOrEqual(t, p.WorstCaseMilliamps(136, DefaultChannelMilliamps), 1000.0)
}

func TestLimitNoopUnderBudget(t *testing.T) {
	p, err := New(DefaultOptions())
	require.NoError(t, err)
	before := p.Table(StillAlive)
	assert.Equal(t, 1.0, p.Limit(136, 35000, 20))
	assert.Equal(t, 1.0, p.Limit(136, 0, 20))
	assert.Equal(t, before, p.Table(StillAlive))
}

func TestCustomColors(t *testing.T) {
	red, err := colorful.Hex("#ff0000")
	require.NoError(t, err)
	o := Options{Steps: 3, Alive: red, Dead: colorful.Color{}, MaxBrightness: 255}
	p, err := New(o)
	require.NoError(t, err)
	assert.Equal(t, []color.NRGBA{
		{R: 255, A: 255},
		{R: 128, A: 255},
		{A: 255},
	}, p.Table(AliveToDead))
}
