package segmentation

import "headcirc/internal/models"

// traceBoundary walks the outer boundary of the labeled region
// clockwise, starting at its topmost-leftmost pixel. Thin structures
// are traversed once per side, the usual behavior of raster boundary
// following. The walk ends when it re-enters the start pixel about to
// repeat its first move.
func traceBoundary(labels []int32, target int32, w, h int, start models.Point) models.Contour {
	in := func(u, v int) bool {
		return u >= 0 && u < w && v >= 0 && v < h && labels[u+v*w] == target
	}

	// next scans the 8-neighborhood clockwise. Having arrived at p by a
	// move in direction arrived, the scan starts two steps counter to
	// it, which keeps the background on the walk's left side.
	next := func(p models.Point, arrived int) (models.Point, int, bool) {
		for i := 0; i < 8; i++ {
			d := (arrived + 6 + i) % 8
			q := models.Point{U: p.U + nbrU[d], V: p.V + nbrV[d]}
			if in(q.U, q.V) {
				return q, d, true
			}
		}
		return p, arrived, false
	}

	contour := models.Contour{start}

	// The seed's west neighbor is background, equivalent to having
	// arrived moving east.
	second, dirFirst, ok := next(start, 0)
	if !ok {
		// Isolated single pixel.
		return contour
	}

	cur, dir := second, dirFirst
	limit := 4 * w * h
	for len(contour) < limit {
		if cur == start {
			n, d, _ := next(cur, dir)
			if n == second && d == dirFirst {
				break
			}
		}
		contour = append(contour, cur)
		n, d, ok := next(cur, dir)
		if !ok {
			break
		}
		cur, dir = n, d
	}
	return contour
}
