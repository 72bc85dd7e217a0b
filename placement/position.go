// Package placement implements the position search (C3) and the full
// placement planner (C4): the search over candidate positions for one
// (item, orientation, container), and the orchestration across all items
// with priority/zone policy and capacity tracking.
package placement

import (
	"sort"

	"github.com/orionop/cargox/geometry"
)

// gridStepDefault and gridStepCoarse are the position-search step sizes:
// the coarser step kicks in once a container's mean interior dimension
// exceeds coarseDimThreshold.
const (
	gridStepDefault      = 0.1
	gridStepCoarse       = 0.25
	coarseDimThreshold   = 10.0
	maxSamplesPerAxis    = 20
	accessZWeight        = 0.2 // z-depth weight in the non-priority contact score
)

// Candidate is one surviving, scored position for an item in a fixed
// orientation inside a fixed container.
type Candidate struct {
	Box   geometry.Box
	Score float64 // lower is better; meaningless when PrioritizeAccess ranking was used
}

// Search finds the best candidate position for a box of size (w,h,d)
// inside a container of interior size (W,H,D), avoiding the already-placed
// boxes in occupied.
//
// placedCount and capacity implement the capacity reject; occupied is the
// full set of already-placed boxes in the container used for overlap
// filtering.
func Search(containerW, containerH, containerD float64, w, h, d float64, occupied []geometry.Box, placedCount, capacity int, prioritizeAccess bool) (Candidate, bool) {
	if w > containerW || h > containerH || d > containerD {
		return Candidate{}, false
	}
	if placedCount >= capacity {
		return Candidate{}, false
	}

	step := gridStepDefault
	if (containerW+containerH+containerD)/3 > coarseDimThreshold {
		step = gridStepCoarse
	}

	xs := axisSamples(containerW-w, step)
	ys := axisSamples(containerH-h, step)
	zs := axisSamples(containerD-d, step)

	var best Candidate
	found := false

	for _, z := range zs {
		for _, y := range ys {
			for _, x := range xs {
				box := geometry.Box{X: x, Y: y, Z: z, W: w, H: h, D: d}
				if overlapsAny(box, occupied) {
					continue
				}
				score := contactScore(box, containerW, containerH, containerD, prioritizeAccess)
				cand := Candidate{Box: box, Score: score}
				if !found || better(cand, best, prioritizeAccess) {
					best = cand
					found = true
				}
			}
		}
	}

	return best, found
}

// better reports whether a ranks ahead of b under the search's ranking
// rule, breaking ties by smallest (z,y,x) lexicographically.
func better(a, b Candidate, prioritizeAccess bool) bool {
	var primary int
	if prioritizeAccess {
		primary = cmp(a.Box.Z, b.Box.Z)
	} else {
		primary = cmp(a.Score, b.Score)
	}
	if primary != 0 {
		return primary < 0
	}
	if c := cmp(a.Box.Z, b.Box.Z); c != 0 {
		return c < 0
	}
	if c := cmp(a.Box.Y, b.Box.Y); c != 0 {
		return c < 0
	}
	return cmp(a.Box.X, b.Box.X) < 0
}

func cmp(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func overlapsAny(box geometry.Box, occupied []geometry.Box) bool {
	for _, o := range occupied {
		if geometry.Overlaps(box, o) {
			return true
		}
	}
	return false
}

// contactArea is the sum of face areas of box flush with any of the six
// container interior faces.
func contactArea(box geometry.Box, containerW, containerH, containerD float64) float64 {
	x2, y2, z2 := box.Max()
	area := 0.0
	if box.X == 0 {
		area += box.H * box.D
	}
	if x2 == containerW {
		area += box.H * box.D
	}
	if box.Y == 0 {
		area += box.W * box.D
	}
	if y2 == containerH {
		area += box.W * box.D
	}
	if box.Z == 0 {
		area += box.W * box.H
	}
	if z2 == containerD {
		area += box.W * box.H
	}
	return area
}

// contactScore is the cost to minimize when prioritizeAccess is false:
// larger contact area is better (lower cost), and among equal-contact
// candidates a deeper z (farther from the open face) is preferred, per
// the 20% z weight favoring depth for non-priority items.
func contactScore(box geometry.Box, containerW, containerH, containerD float64, prioritizeAccess bool) float64 {
	if prioritizeAccess {
		return box.Z
	}
	return -contactArea(box, containerW, containerH, containerD) - accessZWeight*box.Z
}

// axisSamples generates the candidate grid along one axis over [0, maxVal]
// with the given step, capped at maxSamplesPerAxis samples; when the cap
// would be exceeded it substitutes the sparse lattice
// {0, max/3, 2*max/3, max}.
func axisSamples(maxVal, step float64) []float64 {
	if maxVal <= 0 {
		return []float64{0}
	}
	n := int(maxVal/step) + 1
	if n > maxSamplesPerAxis {
		return dedupSorted([]float64{0, maxVal / 3, 2 * maxVal / 3, maxVal})
	}
	samples := make([]float64, 0, n+1)
	for i := 0; i < n; i++ {
		samples = append(samples, float64(i)*step)
	}
	if samples[len(samples)-1] < maxVal {
		samples = append(samples, maxVal)
	}
	return samples
}

func dedupSorted(vals []float64) []float64 {
	sort.Float64s(vals)
	out := vals[:0:0]
	for i, v := range vals {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
