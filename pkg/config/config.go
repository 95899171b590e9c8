// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/user/framesift/pkg/adapters/framesink"
	"github.com/user/framesift/pkg/analysis"
	"github.com/user/framesift/pkg/coordinator"
	"github.com/user/framesift/pkg/engine"
	"github.com/user/framesift/pkg/extract"
	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/selection"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "FRAMESIFT_"

// Config represents the full configuration for framesift. Values come from
// Defaults, then an optional YAML file, then FRAMESIFT_* environment
// variables, then command line flags.
type Config struct {
	// Decoding
	GapThreshold    int64   `yaml:"gap_threshold" env:"GAP_THRESHOLD"`
	VFRTolerance    float64 `yaml:"vfr_tolerance" env:"VFR_TOLERANCE"`
	Workers         int     `yaml:"workers" env:"WORKERS"`
	ChannelCapacity int     `yaml:"channel_capacity" env:"CHANNEL_CAPACITY"`
	Cache           bool    `yaml:"cache" env:"CACHE"`
	FFmpegPath      string  `yaml:"ffmpeg_path" env:"FFMPEG_PATH"`

	// Output
	PixelFormat string `yaml:"pixel_format" env:"PIXEL_FORMAT"`
	Width       int    `yaml:"width" env:"WIDTH"`
	Height      int    `yaml:"height" env:"HEIGHT"`
	KeepAspect  bool   `yaml:"keep_aspect" env:"KEEP_ASPECT"`
	ImageFormat string `yaml:"image_format" env:"IMAGE_FORMAT"`
	JPEGQuality int    `yaml:"jpeg_quality" env:"JPEG_QUALITY"`

	// Thumbnails
	Thumbnail ThumbnailConfig `yaml:"thumbnail" envPrefix:"THUMBNAIL_"`

	// Logging
	LogLevel      string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat     string `yaml:"log_format" env:"LOG_FORMAT"`
	ProgressBatch int    `yaml:"progress_batch" env:"PROGRESS_BATCH"`
}

// ThumbnailConfig sizes the thumbnail grid.
type ThumbnailConfig struct {
	Columns int `yaml:"columns" env:"COLUMNS"`
	Rows    int `yaml:"rows" env:"ROWS"`
	Width   int `yaml:"width" env:"WIDTH"`
	Gap     int `yaml:"gap" env:"GAP"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		GapThreshold:    selection.DefaultGapThreshold,
		VFRTolerance:    analysis.DefaultVFRTolerance,
		ChannelCapacity: coordinator.DefaultChannelCapacity,
		Cache:           true,

		PixelFormat: "rgb24",
		KeepAspect:  true,
		ImageFormat: "png",
		JPEGQuality: 90,

		Thumbnail: ThumbnailConfig{
			Columns: 4,
			Rows:    3,
			Width:   320,
			Gap:     8,
		},

		LogLevel:      "info",
		LogFormat:     "console",
		ProgressBatch: 1,
	}
}

// LoadFromFile loads configuration from a YAML file on top of Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Load reads the optional YAML file and then applies the environment.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with FRAMESIFT_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// Validate checks values that cannot be corrected silently.
func (c Config) Validate() error {
	if _, err := ports.ParsePixelFormat(c.PixelFormat); err != nil {
		return err
	}
	if _, err := framesink.ParseImageFormat(c.ImageFormat); err != nil {
		return err
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.LogFormat)
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("negative output size %dx%d", c.Width, c.Height)
	}
	if c.VFRTolerance < 0 {
		return fmt.Errorf("negative vfr tolerance: %v", c.VFRTolerance)
	}
	return nil
}

// ToExtractOptions converts Config to extract.Options. Callback, logger and
// metrics fields are left for the caller.
func (c Config) ToExtractOptions() (extract.Options, error) {
	pix, err := ports.ParsePixelFormat(c.PixelFormat)
	if err != nil {
		return extract.Options{}, err
	}
	return extract.Options{
		GapThreshold: c.GapThreshold,
		Output: engine.OutputFormat{
			Pixel:      pix,
			Width:      c.Width,
			Height:     c.Height,
			KeepAspect: c.KeepAspect,
		},
		Workers:         c.Workers,
		ChannelCapacity: c.ChannelCapacity,
		VFRTolerance:    c.VFRTolerance,
		Cache:           c.Cache,
		ProgressBatch:   c.ProgressBatch,
		FFmpegPath:      c.FFmpegPath,
	}, nil
}
