package segmentation

import "headcirc/internal/models"

// neighbor offsets, 8-connected.
var (
	nbrU = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	nbrV = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

// region summarizes one connected foreground component.
type region struct {
	label int32
	size  int

	// seed is the first pixel in row-major scan order: the topmost,
	// then leftmost pixel of the component. Its west neighbor is
	// always background, which boundary tracing relies on.
	seed models.Point

	centroidU float64
	centroidV float64
}

// labelComponents labels the 8-connected foreground components of the
// mask. The returned labels array is 0 for background and the 1-based
// component label elsewhere.
func labelComponents(mask []bool, w, h int) ([]region, []int32) {
	labels := make([]int32, len(mask))
	var regions []region
	stack := make([]int, 0, 256)
	var next int32

	for start, fg := range mask {
		if !fg || labels[start] != 0 {
			continue
		}
		next++
		reg := region{label: next, seed: models.Point{U: start % w, V: start / w}}

		labels[start] = next
		stack = append(stack[:0], start)
		var sumU, sumV int
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			u, v := idx%w, idx/w
			reg.size++
			sumU += u
			sumV += v

			for k := 0; k < 8; k++ {
				uu, vv := u+nbrU[k], v+nbrV[k]
				if uu < 0 || uu >= w || vv < 0 || vv >= h {
					continue
				}
				j := uu + vv*w
				if mask[j] && labels[j] == 0 {
					labels[j] = next
					stack = append(stack, j)
				}
			}
		}

		reg.centroidU = float64(sumU) / float64(reg.size)
		reg.centroidV = float64(sumV) / float64(reg.size)
		regions = append(regions, reg)
	}
	return regions, labels
}

// selectRegion picks the largest region; among equally large ones the
// one whose centroid sits closest to the plane center wins.
func selectRegion(regions []region, w, h int) region {
	cu, cv := float64(w-1)/2, float64(h-1)/2
	dist2 := func(r region) float64 {
		du, dv := r.centroidU-cu, r.centroidV-cv
		return du*du + dv*dv
	}

	best := regions[0]
	bestD := dist2(best)
	for _, r := range regions[1:] {
		switch {
		case r.size > best.size:
			best, bestD = r, dist2(r)
		case r.size == best.size:
			if d := dist2(r); d < bestD {
				best, bestD = r, d
			}
		}
	}
	return best
}
