package models

// Point is a pixel coordinate inside a Slice2D. U runs along the slice
// width, V along the height.
type Point struct {
	U, V int
}

// Contour is an ordered closed boundary: consecutive points are
// 8-neighbors and the last point connects back to the first. Points are
// pixel centers in slice coordinates.
type Contour []Point

// Clone returns a copy of the contour.
func (c Contour) Clone() Contour {
	out := make(Contour, len(c))
	copy(out, c)
	return out
}

// DistinctPoints counts the unique pixel positions on the contour.
// Thin structures are traversed twice by boundary tracing, so the
// contour length alone overstates how many pixels it covers.
func (c Contour) DistinctPoints() int {
	seen := make(map[Point]struct{}, len(c))
	for _, p := range c {
		seen[p] = struct{}{}
	}
	return len(seen)
}
