// Package framesink writes extracted frames to image files.
package framesink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
	"sync"

	"github.com/user/framesift/pkg/engine"
	"github.com/user/framesift/pkg/ports"
)

// ImageFormat selects the file encoding.
type ImageFormat int

const (
	FormatPNG ImageFormat = iota
	FormatJPEG
)

// Ext returns the file extension without the dot.
func (f ImageFormat) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// ParseImageFormat accepts png, jpg and jpeg.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(s) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	}
	return FormatPNG, fmt.Errorf("unsupported image format: %q", s)
}

// Entry describes one written frame in the manifest.
type Entry struct {
	Index       int64   `json:"index"`
	TimestampMs float64 `json:"timestamp_ms"`
	PTS         int64   `json:"pts"`
	Keyframe    bool    `json:"keyframe"`
	PictureType string  `json:"picture_type"`
	File        string  `json:"file"`
}

// Sink saves frames as frame-NNNNNN.<ext> under baseDir. It is safe for
// concurrent use.
type Sink struct {
	baseDir string
	fs      ports.FileSystem
	format  ImageFormat
	quality int

	mu      sync.Mutex
	entries []Entry
}

// New creates a Sink. Quality applies to JPEG only.
func New(baseDir string, fs ports.FileSystem, format ImageFormat, quality int) *Sink {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &Sink{
		baseDir: baseDir,
		fs:      fs,
		format:  format,
		quality: quality,
	}
}

// FileName returns the file name used for a frame index.
func (s *Sink) FileName(index int64) string {
	return fmt.Sprintf("frame-%06d.%s", index, s.format.Ext())
}

// SaveFrame encodes and writes one frame, returning its path.
func (s *Sink) SaveFrame(rec engine.FrameRecord) (string, error) {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return "", err
	}
	img := rec.Image()

	var buf bytes.Buffer
	switch s.format {
	case FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
			return "", fmt.Errorf("encode JPEG: %w", err)
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("encode PNG: %w", err)
		}
	}

	name := s.FileName(rec.Index)
	path := filepath.Join(s.baseDir, name)
	if err := s.fs.WriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.entries = append(s.entries, Entry{
		Index:       rec.Index,
		TimestampMs: float64(rec.Timestamp.Microseconds()) / 1000,
		PTS:         rec.PTS,
		Keyframe:    rec.Keyframe,
		PictureType: rec.PictureType.String(),
		File:        name,
	})
	s.mu.Unlock()
	return path, nil
}

// Consume adapts the sink to an engine.FrameFunc.
func (s *Sink) Consume(rec engine.FrameRecord) error {
	_, err := s.SaveFrame(rec)
	return err
}

// Entries returns the frames written so far in write order.
func (s *Sink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// SaveManifest writes frames.json listing every saved frame.
func (s *Sink) SaveManifest() (string, error) {
	data, err := json.MarshalIndent(s.Entries(), "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.baseDir, "frames.json")
	return path, s.fs.WriteFile(path, data)
}
