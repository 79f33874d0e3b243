package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Volume is a 3D scalar image held in memory. Voxel data is stored as a
// flat array in x-fastest order, so the voxel at (x, y, z) lives at
// x + y*NX + z*NX*NY. All physical sizes are millimeters.
type Volume struct {
	// ID identifies this in-memory instance. Two loads of the same file
	// produce different IDs.
	ID uuid.UUID

	// Data holds the voxel intensities in x-fastest order.
	Data []float32

	// NX, NY, NZ are the grid dimensions in voxels.
	NX, NY, NZ int

	// SpacingX, SpacingY, SpacingZ are the per-axis voxel sizes in mm.
	SpacingX, SpacingY, SpacingZ float64

	// OriginX, OriginY, OriginZ locate voxel (0,0,0) in physical space.
	OriginX, OriginY, OriginZ float64

	// SourcePath is the file or directory the volume was read from.
	SourcePath string

	// Format names the on-disk format, e.g. "nifti", "nrrd" or "dicom".
	Format string
}

// Dimensions returns the grid size in voxels along x, y and z.
func (v *Volume) Dimensions() (nx, ny, nz int) {
	return v.NX, v.NY, v.NZ
}

// Spacing returns the voxel size in mm along x, y and z.
func (v *Volume) Spacing() (sx, sy, sz float64) {
	return v.SpacingX, v.SpacingY, v.SpacingZ
}

// NumVoxels returns the total number of voxels in the grid.
func (v *Volume) NumVoxels() int {
	return v.NX * v.NY * v.NZ
}

// Extent returns the number of voxels along the given axis.
func (v *Volume) Extent(axis Axis) int {
	switch axis {
	case AxisX:
		return v.NX
	case AxisY:
		return v.NY
	default:
		return v.NZ
	}
}

// PlaneDims returns the width and height of a slice orthogonal to the
// given axis. Width iterates fastest in the extracted plane.
func (v *Volume) PlaneDims(axis Axis) (w, h int) {
	switch axis {
	case AxisX:
		return v.NZ, v.NY
	case AxisY:
		return v.NX, v.NZ
	default:
		return v.NX, v.NY
	}
}

// PlaneSpacing returns the in-plane voxel spacing (u then v, in mm) of a
// slice orthogonal to the given axis. The pairing mirrors PlaneDims.
func (v *Volume) PlaneSpacing(axis Axis) (su, sv float64) {
	switch axis {
	case AxisX:
		return v.SpacingZ, v.SpacingY
	case AxisY:
		return v.SpacingX, v.SpacingZ
	default:
		return v.SpacingX, v.SpacingY
	}
}

// Index returns the flat Data offset of voxel (x, y, z). Bounds are not
// checked; callers iterate within Dimensions.
func (v *Volume) Index(x, y, z int) int {
	return x + y*v.NX + z*v.NX*v.NY
}

// At returns the intensity at (x, y, z) without bounds checking.
func (v *Volume) At(x, y, z int) float32 {
	return v.Data[v.Index(x, y, z)]
}

// IntensityAt returns the intensity at (x, y, z), or an OutOfRangeError
// when the coordinate lies outside the grid.
func (v *Volume) IntensityAt(x, y, z int) (float32, error) {
	if x < 0 || x >= v.NX || y < 0 || y >= v.NY || z < 0 || z >= v.NZ {
		return 0, &OutOfRangeError{X: x, Y: y, Z: z, NX: v.NX, NY: v.NY, NZ: v.NZ}
	}
	return v.Data[v.Index(x, y, z)], nil
}

// Validate checks the structural invariants every loaded volume must
// satisfy: positive dimensions, positive spacing and a data array that
// matches the grid size.
func (v *Volume) Validate() error {
	if v.NX < 1 || v.NY < 1 || v.NZ < 1 {
		return fmt.Errorf("invalid dimensions %dx%dx%d", v.NX, v.NY, v.NZ)
	}
	if v.SpacingX <= 0 || v.SpacingY <= 0 || v.SpacingZ <= 0 {
		return fmt.Errorf("invalid voxel spacing (%g, %g, %g) mm", v.SpacingX, v.SpacingY, v.SpacingZ)
	}
	if want := v.NX * v.NY * v.NZ; len(v.Data) != want {
		return fmt.Errorf("data length %d does not match %dx%dx%d grid (%d voxels)",
			len(v.Data), v.NX, v.NY, v.NZ, want)
	}
	return nil
}
