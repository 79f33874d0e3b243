// Package smoothing applies Gaussian pre-filtering to extracted slices
// so threshold segmentation sees less pixel noise.
package smoothing

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"headcirc/internal/models"
)

// Smooth returns a Gaussian-filtered copy of the slice. Sigma is the
// standard deviation in pixels; zero or negative sigma returns an
// unfiltered copy. The filter is separable (one horizontal pass, one
// vertical) and border pixels reuse the nearest in-bounds sample.
func Smooth(s *models.Slice2D, sigma float64) *models.Slice2D {
	if sigma <= 0 {
		return s.Clone()
	}

	k := kernel(sigma)
	r := len(k) / 2

	tmp := s.Clone()
	for v := 0; v < s.Height; v++ {
		for u := 0; u < s.Width; u++ {
			var acc float64
			for i, w := range k {
				acc += w * s.At(clamp(u+i-r, s.Width), v)
			}
			tmp.Set(u, v, acc)
		}
	}

	out := s.Clone()
	for v := 0; v < s.Height; v++ {
		for u := 0; u < s.Width; u++ {
			var acc float64
			for i, w := range k {
				acc += w * tmp.At(u, clamp(v+i-r, s.Height))
			}
			out.Set(u, v, acc)
		}
	}
	return out
}

// kernel builds a normalized 1D Gaussian covering three standard
// deviations on each side.
func kernel(sigma float64) []float64 {
	r := int(math.Ceil(3 * sigma))
	k := make([]float64, 2*r+1)
	inv := 1 / (2 * sigma * sigma)
	for i := range k {
		d := float64(i - r)
		k[i] = math.Exp(-d * d * inv)
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
