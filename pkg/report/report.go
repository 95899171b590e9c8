// Package report renders stream analysis and extraction results.
package report

import (
	"time"

	"github.com/user/framesift/pkg/analysis"
	"github.com/user/framesift/pkg/ports"
)

// Report collects everything known about one source.
type Report struct {
	GeneratedAt time.Time
	Source      string
	Stream      ports.StreamInfo
	Gop         *analysis.GopIndex
	VFR         *analysis.VfrReport
	Validation  *analysis.ValidationReport
	Scenes      *Scenes
	Extraction  *Extraction
}

// Scenes holds detected cuts and the threshold used to find them.
type Scenes struct {
	Threshold float64
	Changes   []analysis.SceneChange
}

// Extraction summarises one frame extraction call.
type Extraction struct {
	Selection string
	Mode      string
	Frames    int
	Elapsed   time.Duration
	OutputDir string
}

// FramesPerSecond is the delivery rate of the extraction.
func (e Extraction) FramesPerSecond() float64 {
	if e.Elapsed <= 0 {
		return 0
	}
	return float64(e.Frames) / e.Elapsed.Seconds()
}

// Builder provides a fluent interface for building a Report.
type Builder struct {
	report *Report
}

// NewBuilder creates a Builder stamped with the current time.
func NewBuilder(source string, info ports.StreamInfo) *Builder {
	return &Builder{report: &Report{
		GeneratedAt: time.Now(),
		Source:      source,
		Stream:      info,
	}}
}

// WithGop attaches a keyframe index.
func (b *Builder) WithGop(g analysis.GopIndex) *Builder {
	b.report.Gop = &g
	return b
}

// WithVFR attaches a frame rate report.
func (b *Builder) WithVFR(v analysis.VfrReport) *Builder {
	b.report.VFR = &v
	return b
}

// WithValidation attaches a validation report.
func (b *Builder) WithValidation(v analysis.ValidationReport) *Builder {
	b.report.Validation = &v
	return b
}

// WithScenes attaches detected scene changes.
func (b *Builder) WithScenes(threshold float64, changes []analysis.SceneChange) *Builder {
	b.report.Scenes = &Scenes{Threshold: threshold, Changes: changes}
	return b
}

// WithExtraction attaches extraction results.
func (b *Builder) WithExtraction(e Extraction) *Builder {
	b.report.Extraction = &e
	return b
}

// Build returns the constructed Report.
func (b *Builder) Build() *Report {
	return b.report
}
