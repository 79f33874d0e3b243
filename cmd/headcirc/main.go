package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"headcirc/internal/logging"
	"headcirc/internal/models"
	"headcirc/pkg/config"
	"headcirc/pkg/measure"
	"headcirc/pkg/segmentation"
	"headcirc/pkg/volume"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "Volume file (.nii, .nii.gz, .nrrd, .dcm) or DICOM series directory")
	configPath := flag.String("config", "", "Path to YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	axisName := flag.String("axis", "", "Slice axis: x, y or z (default from config)")
	sliceIndex := flag.Int("index", -1, "Slice index along the axis (default: middle slice)")
	threshold := flag.String("threshold", "auto", "Binarization threshold: auto or a number")
	sigma := flag.Float64("sigma", -1, "Gaussian smoothing sigma in pixels (default from config)")
	rotX := flag.Int("rx", 0, "Rotation about the x axis in degrees")
	rotY := flag.Int("ry", 0, "Rotation about the y axis in degrees")
	rotZ := flag.Int("rz", 0, "Rotation about the z axis in degrees")
	asJSON := flag.Bool("json", false, "Print the measurement report as JSON")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *writeConfig {
		if *configPath == "" {
			fmt.Fprintln(os.Stderr, "-write-config requires -config")
			os.Exit(1)
		}
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	// Validate inputs
	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	levelName := cfg.Logging.Level
	if *verbose {
		levelName = "debug"
	}
	level, levelErr := logging.ParseLevel(levelName)
	if levelErr != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Logging.Console {
		log = logging.NewConsole(level)
	} else {
		log = logging.New(os.Stderr, level)
	}
	if levelErr != nil {
		log.Warn().Err(levelErr).Str("level", levelName).Msg("unknown log level, using info")
	}

	axis := cfg.DefaultAxis()
	if *axisName != "" {
		axis, err = models.ParseAxis(*axisName)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid -axis")
		}
	}

	thresholdSpec := models.AutoThreshold()
	if !strings.EqualFold(*threshold, "auto") {
		value, err := strconv.ParseFloat(*threshold, 64)
		if err != nil {
			log.Fatal().Str("threshold", *threshold).Msg("-threshold must be auto or a number")
		}
		thresholdSpec = models.ExplicitThreshold(value)
	}

	smoothingSigma := *sigma
	if smoothingSigma < 0 {
		smoothingSigma = cfg.Measurement.SmoothingSigma
	}

	store := volume.NewStore(volume.WithLogger(log))
	seg := segmentation.NewSegmenter(cfg.SegmentationParams(), segmentation.WithLogger(log))
	pipeline := measure.NewPipeline(store,
		measure.WithLogger(log),
		measure.WithSegmenter(seg),
		measure.WithCacheSize(cfg.Cache.MaxEntries),
	)

	vol, err := pipeline.LoadVolume(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Str("input", *inputPath).Msg("failed to load volume")
	}

	index := *sliceIndex
	if index < 0 {
		index = vol.Extent(axis) / 2
	}

	params := models.MeasureParams{
		Axis:           axis,
		Index:          index,
		Threshold:      thresholdSpec,
		SmoothingSigma: smoothingSigma,
		Rotation:       models.Rotation{X: *rotX, Y: *rotY, Z: *rotZ},
	}

	m, err := pipeline.MeasureSlice(params)
	if err != nil {
		log.Fatal().Err(err).Str("params", params.String()).Msg("measurement failed")
	}

	if *asJSON {
		out, err := json.MarshalIndent(m.Report(), "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to encode report")
		}
		fmt.Println(string(out))
		return
	}

	nx, ny, nz := vol.Dimensions()
	fmt.Println("================================")
	fmt.Println("HEAD CIRCUMFERENCE MEASUREMENT")
	fmt.Println("================================")
	fmt.Printf("Volume: %s (%dx%dx%d, %s)\n", *inputPath, nx, ny, nz, vol.Format)
	fmt.Printf("Slice: %s axis, index %d\n", axis, index)
	if !params.Rotation.IsZero() {
		fmt.Printf("Rotation: %s degrees\n", params.Rotation)
	}
	fmt.Printf("Threshold used: %.3f\n", m.ThresholdUsed)
	fmt.Printf("Contour points: %d\n", len(m.Contour))
	fmt.Printf("\nCircumference: %.2f mm\n", m.LengthMM)
}
