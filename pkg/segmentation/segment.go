// Package segmentation binarizes slices and traces the dominant
// foreground boundary, the contour the measurement stage runs over.
package segmentation

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"headcirc/internal/models"
)

// Reason classifies why no usable contour was found in a slice.
type Reason int

const (
	// ReasonUniformIntensity: the slice has a single intensity, so no
	// threshold can be derived automatically.
	ReasonUniformIntensity Reason = iota

	// ReasonEmptyForeground: nothing lies above the threshold.
	ReasonEmptyForeground

	// ReasonTooManyRegions: the binarized slice shattered into so many
	// components it has to be noise.
	ReasonTooManyRegions

	// ReasonTooSmall: every component is below the minimum size.
	ReasonTooSmall

	// ReasonDegenerateContour: the traced boundary covers fewer than
	// three distinct pixels.
	ReasonDegenerateContour
)

func (r Reason) String() string {
	switch r {
	case ReasonUniformIntensity:
		return "uniform intensity"
	case ReasonEmptyForeground:
		return "empty foreground"
	case ReasonTooManyRegions:
		return "too many regions"
	case ReasonTooSmall:
		return "region too small"
	case ReasonDegenerateContour:
		return "degenerate contour"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// NoContourError reports that a slice yielded no measurable contour.
type NoContourError struct {
	Axis   models.Axis
	Index  int
	Reason Reason
	Detail string
}

func (e *NoContourError) Error() string {
	msg := fmt.Sprintf("no contour in slice %d along axis %s: %s", e.Index, e.Axis, e.Reason)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Params tunes the segmenter. Zero HistogramBins or MaxRegions fall
// back to their defaults; a zero MinRegionFraction disables the size
// filter and a negative one restores the default.
type Params struct {
	// HistogramBins is the bin count used for automatic thresholding.
	HistogramBins int

	// MinRegionFraction rejects components covering less than this
	// fraction of the plane.
	MinRegionFraction float64

	// MaxRegions marks the slice as noise when the binarized component
	// count reaches it.
	MaxRegions int
}

// DefaultParams returns the tuning used when nothing is configured.
func DefaultParams() Params {
	return Params{
		HistogramBins:     256,
		MinRegionFraction: 0.005,
		MaxRegions:        10,
	}
}

// Segmenter extracts the dominant contour from slices.
type Segmenter struct {
	params Params
	log    zerolog.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithLogger attaches a logger to the segmenter.
func WithLogger(log zerolog.Logger) Option {
	return func(g *Segmenter) {
		g.log = log
	}
}

// NewSegmenter builds a segmenter, filling unset params with defaults.
func NewSegmenter(params Params, opts ...Option) *Segmenter {
	def := DefaultParams()
	if params.HistogramBins <= 1 {
		params.HistogramBins = def.HistogramBins
	}
	if params.MinRegionFraction < 0 {
		params.MinRegionFraction = def.MinRegionFraction
	}
	if params.MaxRegions <= 0 {
		params.MaxRegions = def.MaxRegions
	}

	g := &Segmenter{params: params, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Segment binarizes the slice, keeps its dominant foreground component
// and returns the component's outer boundary together with the
// threshold that was applied. Failures are NoContourErrors carrying the
// slice identity and a reason.
func (g *Segmenter) Segment(s *models.Slice2D, spec models.ThresholdSpec) (models.Contour, float64, error) {
	thr := spec.Value
	if spec.IsAuto() {
		t, err := otsuThreshold(s.Data, g.params.HistogramBins)
		if err != nil {
			return nil, 0, &NoContourError{
				Axis: s.Axis, Index: s.Index,
				Reason: ReasonUniformIntensity, Detail: err.Error(),
			}
		}
		thr = t
	}

	mask := binarize(s.Data, thr)
	regions, labels := labelComponents(mask, s.Width, s.Height)
	if len(regions) == 0 {
		return nil, 0, &NoContourError{
			Axis: s.Axis, Index: s.Index,
			Reason: ReasonEmptyForeground,
			Detail: fmt.Sprintf("threshold %g above every pixel", thr),
		}
	}
	if len(regions) >= g.params.MaxRegions {
		return nil, 0, &NoContourError{
			Axis: s.Axis, Index: s.Index,
			Reason: ReasonTooManyRegions,
			Detail: fmt.Sprintf("%d regions", len(regions)),
		}
	}

	best := selectRegion(regions, s.Width, s.Height)
	minPixels := int(math.Ceil(g.params.MinRegionFraction * float64(s.NumPixels())))
	if best.size < minPixels {
		return nil, 0, &NoContourError{
			Axis: s.Axis, Index: s.Index,
			Reason: ReasonTooSmall,
			Detail: fmt.Sprintf("largest region %d px, need %d", best.size, minPixels),
		}
	}

	contour := traceBoundary(labels, best.label, s.Width, s.Height, best.seed)
	if contour.DistinctPoints() < 3 {
		return nil, 0, &NoContourError{
			Axis: s.Axis, Index: s.Index,
			Reason: ReasonDegenerateContour,
			Detail: fmt.Sprintf("%d distinct points", contour.DistinctPoints()),
		}
	}

	g.log.Debug().
		Str("axis", s.Axis.String()).
		Int("index", s.Index).
		Float64("threshold", thr).
		Int("regions", len(regions)).
		Int("region_px", best.size).
		Int("contour_points", len(contour)).
		Msg("slice segmented")

	return contour, thr, nil
}
