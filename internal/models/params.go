package models

import (
	"fmt"
	"strings"
)

// Axis selects the volume axis a slice is taken orthogonal to.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns the lower-case axis letter.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// ParseAxis converts a user-supplied axis name ("x", "y" or "z",
// case-insensitive) into an Axis.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	default:
		return AxisZ, fmt.Errorf("unknown axis %q (want x, y or z)", s)
	}
}

// ThresholdMode distinguishes automatic from caller-supplied thresholds.
type ThresholdMode int

const (
	// ThresholdAuto derives the threshold from the slice histogram.
	ThresholdAuto ThresholdMode = iota

	// ThresholdExplicit binarizes at a caller-supplied intensity.
	ThresholdExplicit
)

// ThresholdSpec selects how a slice is binarized. The zero value is the
// automatic mode.
type ThresholdSpec struct {
	Mode  ThresholdMode
	Value float64
}

// AutoThreshold returns a ThresholdSpec that lets the segmenter pick
// the threshold from the slice histogram.
func AutoThreshold() ThresholdSpec {
	return ThresholdSpec{Mode: ThresholdAuto}
}

// ExplicitThreshold returns a ThresholdSpec that binarizes at the
// given intensity.
func ExplicitThreshold(value float64) ThresholdSpec {
	return ThresholdSpec{Mode: ThresholdExplicit, Value: value}
}

// IsAuto reports whether the threshold is derived automatically.
func (t ThresholdSpec) IsAuto() bool {
	return t.Mode == ThresholdAuto
}

func (t ThresholdSpec) String() string {
	if t.IsAuto() {
		return "auto"
	}
	return fmt.Sprintf("%g", t.Value)
}

// Rotation is a per-axis rotation in whole degrees applied to the
// volume about its physical center before slice extraction.
type Rotation struct {
	X, Y, Z int
}

// IsZero reports whether the rotation leaves the volume untouched.
func (r Rotation) IsZero() bool {
	return r.X == 0 && r.Y == 0 && r.Z == 0
}

func (r Rotation) String() string {
	return fmt.Sprintf("(%d, %d, %d)", r.X, r.Y, r.Z)
}

// MeasureParams bundles everything that determines a single
// measurement besides the volume itself.
type MeasureParams struct {
	// Axis and Index select the slice plane.
	Axis  Axis
	Index int

	// Threshold selects the binarization mode.
	Threshold ThresholdSpec

	// SmoothingSigma is the Gaussian standard deviation in pixels
	// applied before segmentation. Zero or negative disables smoothing.
	SmoothingSigma float64

	// Rotation reorients the volume before the slice is taken.
	Rotation Rotation
}

func (p MeasureParams) String() string {
	return fmt.Sprintf("axis=%s index=%d threshold=%s sigma=%g rotation=%s",
		p.Axis, p.Index, p.Threshold, p.SmoothingSigma, p.Rotation)
}
