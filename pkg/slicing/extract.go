// Package slicing extracts 2D planes from volumes, optionally after
// rotating the volume about its physical center.
package slicing

import (
	"fmt"

	"headcirc/internal/models"
)

// IndexError reports a slice index outside the volume along the
// requested axis.
type IndexError struct {
	Axis   models.Axis
	Index  int
	Extent int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("slice index %d outside [0, %d) along axis %s", e.Index, e.Extent, e.Axis)
}

// Extract copies the plane at index orthogonal to axis. The returned
// slice owns its data and carries the in-plane spacing, so later stages
// never touch the volume again.
func Extract(vol *models.Volume, axis models.Axis, index int) (*models.Slice2D, error) {
	if index < 0 || index >= vol.Extent(axis) {
		return nil, &IndexError{Axis: axis, Index: index, Extent: vol.Extent(axis)}
	}

	out := newPlane(vol, axis, index)

	switch axis {
	case models.AxisX:
		// YZ plane: u runs along z, v along y.
		for y := 0; y < vol.NY; y++ {
			for z := 0; z < vol.NZ; z++ {
				out.Data[z+y*out.Width] = float64(vol.At(index, y, z))
			}
		}
	case models.AxisY:
		// XZ plane: u runs along x, v along z.
		for z := 0; z < vol.NZ; z++ {
			for x := 0; x < vol.NX; x++ {
				out.Data[x+z*out.Width] = float64(vol.At(x, index, z))
			}
		}
	default:
		// XY plane: contiguous in the flat layout.
		base := vol.Index(0, 0, index)
		for i := range out.Data {
			out.Data[i] = float64(vol.Data[base+i])
		}
	}
	return out, nil
}

func newPlane(vol *models.Volume, axis models.Axis, index int) *models.Slice2D {
	w, h := vol.PlaneDims(axis)
	su, sv := vol.PlaneSpacing(axis)
	return &models.Slice2D{
		Data:     make([]float64, w*h),
		Width:    w,
		Height:   h,
		SpacingU: su,
		SpacingV: sv,
		Axis:     axis,
		Index:    index,
		VolumeID: vol.ID,
	}
}

// planeToGrid maps a plane pixel (u, v) at the given slice index back
// to volume grid coordinates.
func planeToGrid(axis models.Axis, u, v, index int) (x, y, z int) {
	switch axis {
	case models.AxisX:
		return index, v, u
	case models.AxisY:
		return u, index, v
	default:
		return u, v, index
	}
}
