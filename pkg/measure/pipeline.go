package measure

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"headcirc/internal/models"
	"headcirc/pkg/segmentation"
	"headcirc/pkg/slicing"
	"headcirc/pkg/smoothing"
	"headcirc/pkg/volume"
)

// Pipeline runs slice measurements against the store's current volume:
// extract (optionally rotated), smooth, segment, measure, all behind
// the measurement cache.
type Pipeline struct {
	store *volume.Store
	seg   *segmentation.Segmenter
	cache *Cache
	log   zerolog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger attaches a logger to the pipeline.
func WithLogger(log zerolog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithSegmenter replaces the default segmenter.
func WithSegmenter(seg *segmentation.Segmenter) PipelineOption {
	return func(p *Pipeline) {
		p.seg = seg
	}
}

// WithCacheSize bounds the measurement cache.
func WithCacheSize(n int) PipelineOption {
	return func(p *Pipeline) {
		p.cache = NewCache(n)
	}
}

// NewPipeline builds a pipeline over the given store.
func NewPipeline(store *volume.Store, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{store: store, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.seg == nil {
		p.seg = segmentation.NewSegmenter(segmentation.DefaultParams())
	}
	if p.cache == nil {
		p.cache = NewCache(DefaultCacheEntries)
	}
	return p
}

// LoadVolume loads a new volume into the store and drops every cached
// measurement: results from the previous volume must not survive a
// reload, even of the same file.
func (p *Pipeline) LoadVolume(path string) (*models.Volume, error) {
	vol, err := p.store.Load(path)
	if err != nil {
		return nil, err
	}
	p.cache.InvalidateAll()
	p.log.Debug().Str("volume_id", vol.ID.String()).Msg("measurement cache invalidated")
	return vol, nil
}

// MeasureSlice measures the contour length of one slice of the current
// volume. Identical requests against the same volume are served from
// the cache, and concurrent identical requests compute once.
func (p *Pipeline) MeasureSlice(params models.MeasureParams) (*models.Measurement, error) {
	vol, err := p.store.Current()
	if err != nil {
		return nil, err
	}
	gen := p.store.Generation()
	key := cacheKey(vol.ID, gen, params)

	start := time.Now()
	m, err := p.cache.GetOrCompute(key, func() (*models.Measurement, error) {
		return p.measure(vol, params)
	})
	if err != nil {
		p.log.Warn().Err(err).Stringer("volume_id", vol.ID).Str("params", params.String()).Msg("measurement failed")
		return nil, err
	}

	p.log.Info().
		Stringer("volume_id", vol.ID).
		Str("params", params.String()).
		Float64("length_mm", m.LengthMM).
		Float64("threshold", m.ThresholdUsed).
		Dur("elapsed", time.Since(start)).
		Msg("slice measured")
	return m, nil
}

// CacheStats exposes the measurement cache counters.
func (p *Pipeline) CacheStats() Stats {
	return p.cache.Stats()
}

// InvalidateCache drops all cached measurements without touching the
// volume.
func (p *Pipeline) InvalidateCache() {
	p.cache.InvalidateAll()
}

func (p *Pipeline) measure(vol *models.Volume, params models.MeasureParams) (*models.Measurement, error) {
	slice, err := slicing.ExtractRotated(vol, params.Axis, params.Index, params.Rotation)
	if err != nil {
		return nil, err
	}

	slice = smoothing.Smooth(slice, params.SmoothingSigma)

	contour, thr, err := p.seg.Segment(slice, params.Threshold)
	if err != nil {
		return nil, err
	}

	return &models.Measurement{
		LengthMM:      Length(contour, slice.SpacingU, slice.SpacingV),
		Contour:       contour,
		ThresholdUsed: thr,
		Params:        params,
		VolumeID:      vol.ID,
	}, nil
}

// cacheKey canonicalizes a measurement request. The volume identity and
// store generation are part of the key, so entries for a replaced
// volume can never be confused with current ones.
func cacheKey(id uuid.UUID, gen uint64, p models.MeasureParams) string {
	sigma := p.SmoothingSigma
	if sigma <= 0 {
		// Every non-positive sigma means "no smoothing".
		sigma = 0
	}
	thr := "auto"
	if !p.Threshold.IsAuto() {
		thr = fmt.Sprintf("%016x", math.Float64bits(p.Threshold.Value))
	}
	return fmt.Sprintf("%s:g%d:%s%d:r%d,%d,%d:t%s:s%016x",
		id, gen, p.Axis, p.Index,
		p.Rotation.X, p.Rotation.Y, p.Rotation.Z,
		thr, math.Float64bits(sigma))
}
