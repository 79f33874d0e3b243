package models

import "github.com/google/uuid"

// Slice2D is a single 2D plane extracted from a Volume, with enough
// provenance to interpret pixel distances physically.
type Slice2D struct {
	// Data holds pixel intensities row by row: pixel (u, v) lives at
	// u + v*Width.
	Data []float64

	// Width and Height are the plane dimensions in pixels.
	Width, Height int

	// SpacingU and SpacingV are the physical pixel sizes in mm along
	// the plane's horizontal and vertical directions.
	SpacingU, SpacingV float64

	// Axis is the volume axis the slice is orthogonal to.
	Axis Axis

	// Index is the slice position along Axis.
	Index int

	// VolumeID records which Volume instance the slice came from.
	VolumeID uuid.UUID
}

// At returns the intensity at pixel (u, v) without bounds checking.
func (s *Slice2D) At(u, v int) float64 {
	return s.Data[u+v*s.Width]
}

// Set stores an intensity at pixel (u, v) without bounds checking.
func (s *Slice2D) Set(u, v int, val float64) {
	s.Data[u+v*s.Width] = val
}

// NumPixels returns the total pixel count of the plane.
func (s *Slice2D) NumPixels() int {
	return s.Width * s.Height
}

// Clone returns a deep copy sharing no data with the receiver.
func (s *Slice2D) Clone() *Slice2D {
	out := *s
	out.Data = make([]float64, len(s.Data))
	copy(out.Data, s.Data)
	return &out
}
