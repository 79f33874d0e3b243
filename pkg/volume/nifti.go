package volume

import (
	"fmt"

	"github.com/henghuang/nifti"

	"headcirc/internal/models"
)

// loadNIfTI reads a NIfTI-1 file (.nii or .nii.gz). For 4D files only
// the first timepoint is kept.
func loadNIfTI(path string) (*models.Volume, error) {
	img, err := parseNIfTI(path, true)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "parse nifti", Err: err}
	}

	dims := img.GetDims()
	nx, ny, nz := int(dims[0]), int(dims[1]), int(dims[2])
	if nz < 1 {
		nz = 1
	}
	if nx < 1 || ny < 1 {
		return nil, &LoadError{Path: path, Reason: fmt.Sprintf("invalid nifti dimensions %dx%dx%d", nx, ny, nz)}
	}

	voxel := img.GetVoxelSize()
	vol := &models.Volume{
		Data:     make([]float32, nx*ny*nz),
		NX:       nx,
		NY:       ny,
		NZ:       nz,
		SpacingX: float64(voxel[0]),
		SpacingY: float64(voxel[1]),
		SpacingZ: float64(voxel[2]),
		Format:   "nifti",
	}

	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			row := vol.Index(0, y, z)
			for x := 0; x < nx; x++ {
				vol.Data[row+x] = img.GetAt(uint32(x), uint32(y), uint32(z), 0)
			}
		}
	}
	return vol, nil
}

// parseNIfTI wraps the nifti library, which panics on malformed input.
// The panic is converted into an ordinary error.
func parseNIfTI(path string, readData bool) (img nifti.Nifti1Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()

	img.LoadImage(path, readData)

	return img, err
}
