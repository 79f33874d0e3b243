package models

import "fmt"

// OutOfRangeError reports a voxel coordinate outside the volume grid.
type OutOfRangeError struct {
	X, Y, Z    int
	NX, NY, NZ int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("voxel (%d, %d, %d) outside %dx%dx%d volume",
		e.X, e.Y, e.Z, e.NX, e.NY, e.NZ)
}
