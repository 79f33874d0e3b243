package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headcirc/internal/models"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, models.AxisZ, cfg.DefaultAxis())
	assert.Zero(t, cfg.Measurement.SmoothingSigma)
	assert.Equal(t, 256, cfg.Segmentation.HistogramBins)
	assert.Equal(t, 128, cfg.Cache.MaxEntries)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesSubsetOfFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "measurement:\n  defaultAxis: y\nsegmentation:\n  histogramBins: 64\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, models.AxisY, cfg.DefaultAxis())
	assert.Equal(t, 64, cfg.Segmentation.HistogramBins)

	// Untouched fields keep defaults.
	def := DefaultConfig()
	assert.Equal(t, def.Segmentation.MinRegionFraction, cfg.Segmentation.MinRegionFraction)
	assert.Equal(t, def.Cache.MaxEntries, cfg.Cache.MaxEntries)
	assert.Equal(t, def.Logging.Level, cfg.Logging.Level)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache: [not a map"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad axis":          "measurement:\n  defaultAxis: diagonal\n",
		"negative sigma":    "measurement:\n  smoothingSigma: -1\n",
		"one histogram bin": "segmentation:\n  histogramBins: 1\n",
		"fraction too big":  "segmentation:\n  minRegionFraction: 1.5\n",
		"zero max regions":  "segmentation:\n  maxRegions: 0\n",
		"zero cache":        "cache:\n  maxEntries: 0\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Measurement.SmoothingSigma = 1.5
	cfg.Segmentation.MaxRegions = 4
	cfg.Logging.Console = false

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)
}

func TestSegmentationParamsMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Segmentation.HistogramBins = 32
	cfg.Segmentation.MinRegionFraction = 0.01
	cfg.Segmentation.MaxRegions = 6

	p := cfg.SegmentationParams()
	assert.Equal(t, 32, p.HistogramBins)
	assert.Equal(t, 0.01, p.MinRegionFraction)
	assert.Equal(t, 6, p.MaxRegions)
}
