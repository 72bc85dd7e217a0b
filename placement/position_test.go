package placement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orionop/cargox/geometry"
)

func TestSearchRejectsOversizedItem(t *testing.T) {
	_, ok := Search(1, 1, 1, 2, 1, 1, nil, 0, 5, false)
	assert.False(t, ok)
}

func TestSearchRejectsAtCapacity(t *testing.T) {
	_, ok := Search(5, 5, 5, 1, 1, 1, nil, 3, 3, false)
	assert.False(t, ok)
}

func TestSearchSingleFitPrefersDeepestCorner(t *testing.T) {
	// Every corner is flush with three walls; the z weight in the
	// non-priority contact score then favors the back corner (z=0.5), and
	// the (z,y,x) tie-break picks x=0, y=0 there.
	cand, ok := Search(1, 1, 1, 0.5, 0.5, 0.5, nil, 0, 1, false)
	require.True(t, ok)
	assert.Equal(t, 0.0, cand.Box.X)
	assert.Equal(t, 0.0, cand.Box.Y)
	assert.Equal(t, 0.5, cand.Box.Z)
}

func TestSearchAvoidsOccupiedBoxes(t *testing.T) {
	occupied := []geometry.Box{{X: 0, Y: 0, Z: 0, W: 1, H: 1, D: 1}}
	cand, ok := Search(2, 1, 1, 1, 1, 1, occupied, 1, 5, false)
	require.True(t, ok)
	assert.False(t, geometry.Overlaps(cand.Box, occupied[0]))
}

func TestSearchPrioritizeAccessPrefersSmallZ(t *testing.T) {
	cand, ok := Search(1, 1, 2, 1, 1, 1, nil, 0, 1, true)
	require.True(t, ok)
	assert.Equal(t, 0.0, cand.Box.Z)
}

func TestSearchNoFitWhenContainerTooSmall(t *testing.T) {
	_, ok := Search(1, 1, 0.5, 0.5, 0.5, 0.5, []geometry.Box{
		{X: 0, Y: 0, Z: 0, W: 0.5, H: 0.5, D: 0.5},
		{X: 0.5, Y: 0, Z: 0, W: 0.5, H: 0.5, D: 0.5},
		{X: 0, Y: 0.5, Z: 0, W: 0.5, H: 0.5, D: 0.5},
		{X: 0.5, Y: 0.5, Z: 0, W: 0.5, H: 0.5, D: 0.5},
	}, 4, 8, false)
	assert.False(t, ok, "the whole 1x1x0.5 interior is occupied by a 2x2 grid of quarter-boxes")
}

func TestAxisSamplesCapsAtSparseLattice(t *testing.T) {
	samples := axisSamples(100, 0.1)
	assert.Len(t, samples, 4, "beyond the per-axis cap it substitutes the 4-point sparse lattice")
	assert.Equal(t, []float64{0, 100.0 / 3, 200.0 / 3, 100}, samples)
}

func TestAxisSamplesZero(t *testing.T) {
	assert.Equal(t, []float64{0}, axisSamples(0, 0.1))
}

func TestContactAreaFlushFaces(t *testing.T) {
	box := geometry.Box{X: 0, Y: 0, Z: 0, W: 2, H: 3, D: 4}
	area := contactArea(box, 10, 10, 10)
	// flush on x=0, y=0, z=0 faces.
	assert.Equal(t, 3.0*4+2.0*4+2.0*3, area)
}

func TestBetterTieBreaksLexicographically(t *testing.T) {
	a := Candidate{Box: geometry.Box{X: 1, Y: 0, Z: 0}, Score: 5}
	b := Candidate{Box: geometry.Box{X: 0, Y: 0, Z: 0}, Score: 5}
	assert.True(t, better(b, a, false), "equal score: smaller x wins")
}
