// Package config provides configuration loading and management for
// headcirc. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"headcirc/internal/models"
	"headcirc/pkg/segmentation"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Measurement parameters
	Measurement struct {
		// DefaultAxis is the slice axis used when a request does not
		// name one: "x", "y" or "z".
		DefaultAxis string `yaml:"defaultAxis"`

		// SmoothingSigma is the Gaussian standard deviation in pixels
		// applied before segmentation when the request does not set
		// one. Zero disables smoothing.
		SmoothingSigma float64 `yaml:"smoothingSigma"`
	} `yaml:"measurement"`

	// Segmentation parameters
	Segmentation struct {
		// HistogramBins is the histogram resolution for automatic
		// thresholding.
		HistogramBins int `yaml:"histogramBins"`

		// MinRegionFraction rejects foreground regions smaller than
		// this fraction of the slice.
		MinRegionFraction float64 `yaml:"minRegionFraction"`

		// MaxRegions marks a slice as noise when its binarized
		// component count reaches this value.
		MaxRegions int `yaml:"maxRegions"`
	} `yaml:"segmentation"`

	// Cache parameters
	Cache struct {
		// MaxEntries bounds the measurement cache.
		MaxEntries int `yaml:"maxEntries"`
	} `yaml:"cache"`

	// Logging parameters
	Logging struct {
		// Level is the minimum level that gets logged: trace, debug,
		// info, warn or error.
		Level string `yaml:"level"`

		// Console switches to human-readable terminal output instead
		// of JSON.
		Console bool `yaml:"console"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Measurement.DefaultAxis = "z"
	cfg.Measurement.SmoothingSigma = 0

	seg := segmentation.DefaultParams()
	cfg.Segmentation.HistogramBins = seg.HistogramBins
	cfg.Segmentation.MinRegionFraction = seg.MinRegionFraction
	cfg.Segmentation.MaxRegions = seg.MaxRegions

	cfg.Cache.MaxEntries = 128

	cfg.Logging.Level = "info"
	cfg.Logging.Console = true

	return cfg
}

// LoadConfig loads configuration from a YAML file. If the file doesn't
// exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks every field for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if _, err := models.ParseAxis(c.Measurement.DefaultAxis); err != nil {
		return fmt.Errorf("measurement.defaultAxis: %w", err)
	}
	if c.Measurement.SmoothingSigma < 0 {
		return fmt.Errorf("measurement.smoothingSigma must not be negative, got %g", c.Measurement.SmoothingSigma)
	}
	if c.Segmentation.HistogramBins < 2 {
		return fmt.Errorf("segmentation.histogramBins must be at least 2, got %d", c.Segmentation.HistogramBins)
	}
	if c.Segmentation.MinRegionFraction < 0 || c.Segmentation.MinRegionFraction >= 1 {
		return fmt.Errorf("segmentation.minRegionFraction must be in [0, 1), got %g", c.Segmentation.MinRegionFraction)
	}
	if c.Segmentation.MaxRegions < 1 {
		return fmt.Errorf("segmentation.maxRegions must be at least 1, got %d", c.Segmentation.MaxRegions)
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.maxEntries must be at least 1, got %d", c.Cache.MaxEntries)
	}
	return nil
}

// SegmentationParams converts the configured segmentation section into
// segmenter parameters.
func (c *Config) SegmentationParams() segmentation.Params {
	return segmentation.Params{
		HistogramBins:     c.Segmentation.HistogramBins,
		MinRegionFraction: c.Segmentation.MinRegionFraction,
		MaxRegions:        c.Segmentation.MaxRegions,
	}
}

// DefaultAxis returns the configured default slice axis.
func (c *Config) DefaultAxis() models.Axis {
	axis, err := models.ParseAxis(c.Measurement.DefaultAxis)
	if err != nil {
		return models.AxisZ
	}
	return axis
}
