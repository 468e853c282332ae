package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexLinear(t *testing.T) {
	l := Layout{Dim: Dim{X: 17, Y: 8}}
	assert.Equal(t, 136, l.Count())
	assert.Equal(t, 0, l.Index(0, 0))
	assert.Equal(t, 17, l.Index(0, 1))
	assert.Equal(t, 135, l.Index(16, 7))
	assert.Nil(t, l.Addresses())
}

func TestIndexSerpentine(t *testing.T) {
	l := Layout{Dim: Dim{X: 3, Y: 3}, Order: Serpentine{XFlipEveryRow: true}}
	assert.Equal(t, 2, l.Index(2, 0))
	assert.Equal(t, 5, l.Index(0, 1), "odd row runs backwards")
	assert.Equal(t, 3, l.Index(2, 1))
	assert.Equal(t, 6, l.Index(0, 2))

	assert.Equal(t, []int{0, 1, 2, 5, 4, 3, 6, 7, 8}, l.Addresses())
}

func TestAddressesIsPermutation(t *testing.T) {
	l := Layout{Dim: Dim{X: 17, Y: 8}, Order: Serpentine{XFlipEveryRow: true}}
	seen := make(map[int]bool)
	for _, i := range l.Addresses() {
		assert.False(t, seen[i], "cell %d mapped twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, l.Count())
}
