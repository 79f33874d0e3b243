package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridSlice(cols, rows int, fill float32) dicomSlice {
	px := make([]float32, cols*rows)
	for i := range px {
		px[i] = fill
	}
	return dicomSlice{pixels: px, cols: cols, rows: rows, sx: 1, sy: 1}
}

func TestSortDICOMSlicesByPosition(t *testing.T) {
	slices := []dicomSlice{
		{z: 10, hasZ: true, instance: 1},
		{z: -5, hasZ: true, instance: 2},
		{z: 2.5, hasZ: true, instance: 3},
	}
	sortDICOMSlices(slices)
	assert.Equal(t, []float64{-5, 2.5, 10}, []float64{slices[0].z, slices[1].z, slices[2].z})
}

func TestSortDICOMSlicesFallsBackToInstance(t *testing.T) {
	slices := []dicomSlice{
		{instance: 7},
		{z: 1, hasZ: true, instance: 3},
		{instance: 5},
	}
	sortDICOMSlices(slices)
	assert.Equal(t, []int{3, 5, 7}, []int{slices[0].instance, slices[1].instance, slices[2].instance})
}

func TestSliceStepFromPositions(t *testing.T) {
	slices := []dicomSlice{
		{z: 0, hasZ: true},
		{z: 2.5, hasZ: true},
		{z: 5.0, hasZ: true},
	}
	step, err := sliceStep(slices)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, step, 1e-12)
}

func TestSliceStepRejectsUnevenGaps(t *testing.T) {
	slices := []dicomSlice{
		{z: 0, hasZ: true},
		{z: 2.5, hasZ: true},
		{z: 6.0, hasZ: true},
	}
	_, err := sliceStep(slices)
	assert.Error(t, err)
}

func TestSliceStepDeclaredSpacing(t *testing.T) {
	step, err := sliceStep([]dicomSlice{{step: 3.2, hasStep: true}})
	require.NoError(t, err)
	assert.Equal(t, 3.2, step)

	// Nothing declared at all: unit spacing.
	step, err = sliceStep([]dicomSlice{{}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, step)
}

func TestStackDICOMSlices(t *testing.T) {
	a := gridSlice(2, 2, 1)
	a.z, a.hasZ = 4, true
	a.pos, a.hasPos = [3]float64{-10, -20, 4}, true
	b := gridSlice(2, 2, 2)
	b.z, b.hasZ = 2, true
	b.pos, b.hasPos = [3]float64{-10, -20, 2}, true

	vol, err := stackDICOMSlices("series", []dicomSlice{a, b})
	require.NoError(t, err)

	assert.Equal(t, [3]int{2, 2, 2}, [3]int{vol.NX, vol.NY, vol.NZ})
	assert.Equal(t, 2.0, vol.SpacingZ)
	// Slice at z=2 sorts first.
	assert.Equal(t, float32(2), vol.At(0, 0, 0))
	assert.Equal(t, float32(1), vol.At(0, 0, 1))
	assert.Equal(t, [3]float64{-10, -20, 2}, [3]float64{vol.OriginX, vol.OriginY, vol.OriginZ})
}

func TestStackDICOMSlicesInconsistent(t *testing.T) {
	t.Run("dimensions", func(t *testing.T) {
		_, err := stackDICOMSlices("series", []dicomSlice{gridSlice(2, 2, 0), gridSlice(3, 2, 0)})
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Contains(t, le.Reason, "dimensions")
	})

	t.Run("pixel spacing", func(t *testing.T) {
		a, b := gridSlice(2, 2, 0), gridSlice(2, 2, 0)
		b.sx = 0.9
		_, err := stackDICOMSlices("series", []dicomSlice{a, b})
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Contains(t, le.Reason, "spacing")
	})

	t.Run("mixed series", func(t *testing.T) {
		a, b := gridSlice(2, 2, 0), gridSlice(2, 2, 0)
		a.series, b.series = "1.2.3", "4.5.6"
		_, err := stackDICOMSlices("series", []dicomSlice{a, b})
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Contains(t, le.Reason, "series")
	})
}
