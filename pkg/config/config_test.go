package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/framesift/pkg/ports"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.EqualValues(t, 30, cfg.GapThreshold)
	assert.InDelta(t, 0.10, cfg.VFRTolerance, 1e-9)
	assert.Equal(t, 8, cfg.ChannelCapacity)
	assert.Equal(t, "rgb24", cfg.PixelFormat)
	assert.True(t, cfg.KeepAspect)
	assert.Equal(t, 1, cfg.ProgressBatch)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framesift.yaml")
	yml := `
gap_threshold: 60
pixel_format: gray
width: 320
thumbnail:
  columns: 6
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.EqualValues(t, 60, cfg.GapThreshold)
	assert.Equal(t, "gray", cfg.PixelFormat)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 6, cfg.Thumbnail.Columns)
	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Thumbnail.Rows)
	assert.Equal(t, 8, cfg.ChannelCapacity)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [1, 2"), 0o644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("FRAMESIFT_WORKERS", "3")
	t.Setenv("FRAMESIFT_KEEP_ASPECT", "false")
	t.Setenv("FRAMESIFT_THUMBNAIL_COLUMNS", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.False(t, cfg.KeepAspect)
	assert.Equal(t, 7, cfg.Thumbnail.Columns)
	assert.Equal(t, "png", cfg.ImageFormat)
}

func TestApplyEnvInvalid(t *testing.T) {
	t.Setenv("FRAMESIFT_GAP_THRESHOLD", "lots")
	cfg := Defaults()
	assert.Error(t, ApplyEnv(&cfg))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"pixel format", func(c *Config) { c.PixelFormat = "cmyk" }},
		{"image format", func(c *Config) { c.ImageFormat = "gif" }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
		{"negative width", func(c *Config) { c.Width = -1 }},
		{"negative tolerance", func(c *Config) { c.VFRTolerance = -0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestToExtractOptions(t *testing.T) {
	cfg := Defaults()
	cfg.PixelFormat = "rgba"
	cfg.Width = 640
	cfg.Workers = 2
	cfg.FFmpegPath = "/opt/ffmpeg"

	opts, err := cfg.ToExtractOptions()
	require.NoError(t, err)
	assert.Equal(t, ports.PixelRGBA, opts.Output.Pixel)
	assert.Equal(t, 640, opts.Output.Width)
	assert.True(t, opts.Output.KeepAspect)
	assert.Equal(t, 2, opts.Workers)
	assert.EqualValues(t, 30, opts.GapThreshold)
	assert.True(t, opts.Cache)
	assert.Equal(t, "/opt/ffmpeg", opts.FFmpegPath)

	cfg.PixelFormat = "bogus"
	_, err = cfg.ToExtractOptions()
	assert.Error(t, err)
}
