package slicing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"headcirc/internal/models"
)

// ExtractRotated extracts the plane at index orthogonal to axis after
// rotating the volume by rot about its physical center. Sampling is
// trilinear and points rotated outside the grid read as zero. A zero
// rotation is a plain Extract.
func ExtractRotated(vol *models.Volume, axis models.Axis, index int, rot models.Rotation) (*models.Slice2D, error) {
	if rot.IsZero() {
		return Extract(vol, axis, index)
	}
	if index < 0 || index >= vol.Extent(axis) {
		return nil, &IndexError{Axis: axis, Index: index, Extent: vol.Extent(axis)}
	}

	r := eulerMatrix(rot)

	// Physical center of the grid, the fixed point of the rotation.
	cx := vol.OriginX + float64(vol.NX-1)/2*vol.SpacingX
	cy := vol.OriginY + float64(vol.NY-1)/2*vol.SpacingY
	cz := vol.OriginZ + float64(vol.NZ-1)/2*vol.SpacingZ

	out := newPlane(vol, axis, index)
	for v := 0; v < out.Height; v++ {
		for u := 0; u < out.Width; u++ {
			x, y, z := planeToGrid(axis, u, v, index)

			// Output voxel in physical space, relative to the center.
			dx := vol.OriginX + float64(x)*vol.SpacingX - cx
			dy := vol.OriginY + float64(y)*vol.SpacingY - cy
			dz := vol.OriginZ + float64(z)*vol.SpacingZ - cz

			// Rotate, then map back to continuous grid coordinates.
			qx := r.At(0, 0)*dx + r.At(0, 1)*dy + r.At(0, 2)*dz + cx
			qy := r.At(1, 0)*dx + r.At(1, 1)*dy + r.At(1, 2)*dz + cy
			qz := r.At(2, 0)*dx + r.At(2, 1)*dy + r.At(2, 2)*dz + cz

			ix := (qx - vol.OriginX) / vol.SpacingX
			iy := (qy - vol.OriginY) / vol.SpacingY
			iz := (qz - vol.OriginZ) / vol.SpacingZ

			out.Data[u+v*out.Width] = trilinear(vol, ix, iy, iz)
		}
	}
	return out, nil
}

// eulerMatrix builds the rotation matrix for per-axis angles in
// degrees, composed as Rz * Rx * Ry.
func eulerMatrix(rot models.Rotation) *mat.Dense {
	ax := float64(rot.X) * math.Pi / 180
	ay := float64(rot.Y) * math.Pi / 180
	az := float64(rot.Z) * math.Pi / 180

	sx, cx := math.Sincos(ax)
	sy, cy := math.Sincos(ay)
	sz, cz := math.Sincos(az)

	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, cx, -sx,
		0, sx, cx,
	})
	ry := mat.NewDense(3, 3, []float64{
		cy, 0, sy,
		0, 1, 0,
		-sy, 0, cy,
	})
	rz := mat.NewDense(3, 3, []float64{
		cz, -sz, 0,
		sz, cz, 0,
		0, 0, 1,
	})

	var zx, zxy mat.Dense
	zx.Mul(rz, rx)
	zxy.Mul(&zx, ry)
	return &zxy
}

// trilinear samples the volume at a continuous grid coordinate. Corners
// outside the grid contribute zero.
func trilinear(vol *models.Volume, x, y, z float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	z0 := int(math.Floor(z))
	fx := x - float64(x0)
	fy := y - float64(y0)
	fz := z - float64(z0)

	var sum float64
	for dz := 0; dz <= 1; dz++ {
		zz := z0 + dz
		if zz < 0 || zz >= vol.NZ {
			continue
		}
		wz := fz
		if dz == 0 {
			wz = 1 - fz
		}
		for dy := 0; dy <= 1; dy++ {
			yy := y0 + dy
			if yy < 0 || yy >= vol.NY {
				continue
			}
			wy := fy
			if dy == 0 {
				wy = 1 - fy
			}
			for dx := 0; dx <= 1; dx++ {
				xx := x0 + dx
				if xx < 0 || xx >= vol.NX {
					continue
				}
				wx := fx
				if dx == 0 {
					wx = 1 - fx
				}
				sum += wx * wy * wz * float64(vol.At(xx, yy, zz))
			}
		}
	}
	return sum
}
