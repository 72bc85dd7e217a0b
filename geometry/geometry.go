// Package geometry is the axis-aligned box kernel (C1): overlap testing,
// the six-orientation enumeration, and a compatibility shim for legacy
// centimeter-scaled container records. It has no dependency on the store
// or any other core package and sits at the bottom of the import graph.
package geometry

// Box is an axis-aligned bounding box in container-local coordinates.
type Box struct {
	X, Y, Z    float64
	W, H, D    float64
}

// Max returns the box's upper corner.
func (b Box) Max() (float64, float64, float64) {
	return b.X + b.W, b.Y + b.H, b.Z + b.D
}

// Overlaps reports whether a and b share any interior volume. Touching
// faces (equality) are not overlap: non-overlap holds on an axis iff
// a ends at or before b starts, or b ends at or before a starts.
func Overlaps(a, b Box) bool {
	ax2, ay2, az2 := a.Max()
	bx2, by2, bz2 := b.Max()
	if ax2 <= b.X || bx2 <= a.X {
		return false
	}
	if ay2 <= b.Y || by2 <= a.Y {
		return false
	}
	if az2 <= b.Z || bz2 <= a.Z {
		return false
	}
	return true
}

// OverlapsXY reports whether a and b's projections onto the (x,y) plane
// overlap, using the same open-interval rule as Overlaps. Used by the
// retrieval solver's obstruction test, which only cares about what blocks
// the path to the open face, not depth overlap.
func OverlapsXY(a, b Box) bool {
	ax2, ay2 := a.X+a.W, a.Y+a.H
	bx2, by2 := b.X+b.W, b.Y+b.H
	if ax2 <= b.X || bx2 <= a.X {
		return false
	}
	if ay2 <= b.Y || by2 <= a.Y {
		return false
	}
	return true
}

// Fits reports whether a box of the given oriented dimensions fits within
// a container interior of size (W,H,D), starting at the origin offset
// implied by the caller (this only checks the extents, not position).
func Fits(w, h, d, containerW, containerH, containerD float64) bool {
	return w <= containerW && h <= containerH && d <= containerD
}

// Orientation is one permutation of an item's native (w,h,d).
type Orientation struct {
	W, H, D float64
}

// Orientations enumerates the six axis-aligned permutations of (w,h,d).
// This is the complete set of 90-degree rotations the planner considers;
// rotations around the same axis are treated as equivalent for packing.
func Orientations(w, h, d float64) [6]Orientation {
	return [6]Orientation{
		{w, h, d},
		{w, d, h},
		{h, w, d},
		{h, d, w},
		{d, w, h},
		{d, h, w},
	}
}

// normalizationFactor is the legacy centimeter-to-unit rescaling ratio.
// It is a compatibility shim for stored data from before unit
// normalization was enforced at import time — new geometry code should
// never need it because csvio normalizes at import. It is retained here,
// explicitly marked, only because some legacy container rows in the
// store predate that fix.
const normalizationFactor = 100.0

// Normalize rescales a container's interior dimensions if they appear to
// be stored in centimeters relative to an item measured in native units:
// when the container's mean dimension exceeds 50x the item's mean
// dimension, the container dimensions are divided by 100. It does not
// mutate the stored container; callers apply this only at the point of
// geometric comparison.
func Normalize(containerW, containerH, containerD, itemMeanDim float64) (w, h, d float64) {
	containerMean := (containerW + containerH + containerD) / 3
	if itemMeanDim > 0 && containerMean > 50*itemMeanDim {
		return containerW / normalizationFactor, containerH / normalizationFactor, containerD / normalizationFactor
	}
	return containerW, containerH, containerD
}
