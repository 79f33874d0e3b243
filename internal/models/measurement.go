package models

import "github.com/google/uuid"

// Measurement is the result of segmenting one slice and measuring its
// dominant contour.
type Measurement struct {
	// LengthMM is the contour length in millimeters.
	LengthMM float64

	// Contour is the traced boundary the length was computed from.
	Contour Contour

	// ThresholdUsed is the intensity the slice was binarized at. For
	// automatic thresholding this records the derived value.
	ThresholdUsed float64

	// Params are the request parameters that produced the measurement.
	Params MeasureParams

	// VolumeID identifies the volume instance that was measured.
	VolumeID uuid.UUID
}

// Report is the export form of a measurement. Field names are stable
// and intended for JSON serialization.
type Report struct {
	Length     float64      `json:"length"`
	Unit       string       `json:"unit"`
	SliceIndex int          `json:"sliceIndex"`
	Axis       string       `json:"axis"`
	Parameters ReportParams `json:"parameters"`
}

// ReportParams echoes the measurement parameters in a Report.
type ReportParams struct {
	// Threshold is the requested explicit threshold, or null when the
	// threshold was derived automatically.
	Threshold *float64 `json:"threshold"`

	// ThresholdUsed is the intensity actually applied.
	ThresholdUsed float64 `json:"thresholdUsed"`

	SmoothingSigma float64 `json:"smoothingSigma"`

	// RotationDeg lists the x, y and z rotations in degrees.
	RotationDeg [3]int `json:"rotationDeg"`
}

// Report converts the measurement into its export form. Lengths are
// always reported in millimeters.
func (m *Measurement) Report() Report {
	rp := ReportParams{
		ThresholdUsed:  m.ThresholdUsed,
		SmoothingSigma: m.Params.SmoothingSigma,
		RotationDeg:    [3]int{m.Params.Rotation.X, m.Params.Rotation.Y, m.Params.Rotation.Z},
	}
	if !m.Params.Threshold.IsAuto() {
		v := m.Params.Threshold.Value
		rp.Threshold = &v
	}
	return Report{
		Length:     m.LengthMM,
		Unit:       "mm",
		SliceIndex: m.Params.Index,
		Axis:       m.Params.Axis.String(),
		Parameters: rp,
	}
}
