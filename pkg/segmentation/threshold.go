package segmentation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// otsuThreshold picks the intensity that maximizes between-class
// variance over a histogram of the data. The returned value partitions
// exactly like the winning histogram split: everything strictly above
// it is foreground.
func otsuThreshold(data []float64, bins int) (float64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty slice data")
	}
	lo, hi := floats.Min(data), floats.Max(data)
	if !(hi > lo) {
		return 0, fmt.Errorf("uniform intensity %g", lo)
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	// The histogram requires max(x) strictly below the last divider.
	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, math.Nextafter(hi, math.Inf(1)))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	center := func(i int) float64 {
		return (dividers[i] + dividers[i+1]) / 2
	}

	var total, weightedTotal float64
	for i, c := range counts {
		total += c
		weightedTotal += c * center(i)
	}

	best := -1.0
	split := -1
	var wB, sumB float64
	for i := 0; i < bins-1; i++ {
		wB += counts[i]
		sumB += counts[i] * center(i)
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		mB := sumB / wB
		mF := (weightedTotal - sumB) / wF
		v := wB * wF * (mB - mF) * (mB - mF)
		if v > best {
			best = v
			split = i
		}
	}
	if split < 0 || best <= 0 {
		return 0, fmt.Errorf("histogram has a single populated bin")
	}

	// Nudge just below the divider so values on it stay foreground,
	// matching the histogram partition the sweep scored.
	return math.Nextafter(dividers[split+1], lo), nil
}

// binarize marks every pixel strictly above thr as foreground.
func binarize(data []float64, thr float64) []bool {
	mask := make([]bool, len(data))
	for i, v := range data {
		mask[i] = v > thr
	}
	return mask
}
