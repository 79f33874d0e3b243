// Package measure computes physical contour lengths and serves them
// through a caching pipeline.
package measure

import (
	"math"

	"headcirc/internal/models"
)

// Length returns the physical length in mm of the closed contour:
// the sum of Euclidean distances between consecutive points plus the
// closing segment, each pixel step scaled by its axis spacing.
func Length(c models.Contour, spacingU, spacingV float64) float64 {
	if len(c) < 2 {
		return 0
	}
	var total float64
	for i := range c {
		a := c[i]
		b := c[(i+1)%len(c)]
		du := float64(b.U-a.U) * spacingU
		dv := float64(b.V-a.V) * spacingV
		total += math.Hypot(du, dv)
	}
	return total
}
