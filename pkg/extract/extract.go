// Package extract is the entry point for frame extraction. A MediaFile ties
// a ports.Source to the selection, engine, coordinator and analysis packages
// and exposes every extraction mode behind one value.
package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/framesift/pkg/adapters/ffmpegdecoder"
	"github.com/user/framesift/pkg/adapters/logger"
	"github.com/user/framesift/pkg/analysis"
	"github.com/user/framesift/pkg/coordinator"
	"github.com/user/framesift/pkg/engine"
	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/metrics"
	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/selection"
)

// Options configures a MediaFile.
type Options struct {
	GapThreshold    int64
	Output          engine.OutputFormat
	Workers         int
	ChannelCapacity int
	VFRTolerance    float64
	// Cache keeps a decoder open between FrameAt calls.
	Cache         bool
	Progress      engine.ProgressFunc
	ProgressBatch int
	Cancel        *engine.CancelToken
	FFmpegPath    string
	Logger        ports.Logger
	Metrics       *metrics.Collector
}

// DefaultOptions returns RGB24 output at source size with the frame cache
// enabled.
func DefaultOptions() Options {
	eo := engine.DefaultOptions()
	return Options{
		GapThreshold:  eo.GapThreshold,
		Output:        eo.Output,
		Cache:         true,
		ProgressBatch: eo.ProgressBatch,
	}
}

func (o Options) engineOptions() engine.Options {
	return engine.Options{
		GapThreshold:  o.GapThreshold,
		Output:        o.Output,
		Cancel:        o.Cancel,
		Progress:      o.Progress,
		ProgressBatch: o.ProgressBatch,
		Logger:        o.Logger,
		Metrics:       o.Metrics,
	}
}

// MediaFile is an opened video stream. Its methods may be called
// concurrently; each extraction call opens its own decoders.
type MediaFile struct {
	source   ports.Source
	info     ports.StreamInfo
	opts     Options
	engine   *engine.Engine
	coord    *coordinator.Coordinator
	analyzer *analysis.Analyzer
	cache    *engine.FrameCache
	logger   ports.Logger

	gopMu sync.Mutex
	gop   *analysis.GopIndex
}

// Open wraps src. The MediaFile takes ownership and closes src on Close.
func Open(src ports.Source, opts Options) (*MediaFile, error) {
	info := src.Info()
	if info.FrameCount <= 0 || info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d with %d frames", mediaerr.ErrNoVideoStream, info.Width, info.Height, info.FrameCount)
	}
	if err := info.TimeBase.Validate(); err != nil {
		return nil, err
	}
	if err := info.FrameRate.Validate(); err != nil {
		return nil, err
	}

	e, err := engine.New(opts.engineOptions())
	if err != nil {
		return nil, err
	}
	m := &MediaFile{
		source: src,
		info:   info,
		opts:   opts,
		engine: e,
		coord: coordinator.New(e, coordinator.Options{
			Workers:         opts.Workers,
			ChannelCapacity: opts.ChannelCapacity,
			Logger:          opts.Logger,
			Metrics:         opts.Metrics,
		}),
		analyzer: analysis.New(analysis.Options{
			VFRTolerance: opts.VFRTolerance,
			Logger:       opts.Logger,
			Metrics:      opts.Metrics,
		}),
		logger: logger.OrNoop(opts.Logger).WithComponent("extract"),
	}
	if opts.Cache {
		m.cache = engine.NewFrameCache(e, src, info)
	}
	return m, nil
}

// OpenPath opens an MP4 file decoded through ffmpeg.
func OpenPath(path string, opts Options) (*MediaFile, error) {
	src, err := ffmpegdecoder.Open(path, ffmpegdecoder.Options{
		FFmpegPath: opts.FFmpegPath,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	m, err := Open(src, opts)
	if err != nil {
		src.Close()
		return nil, err
	}
	return m, nil
}

// Info returns the primary stream description.
func (m *MediaFile) Info() ports.StreamInfo { return m.info }

// Workers returns the default parallel pool size.
func (m *MediaFile) Workers() int { return m.coord.Workers() }

// Plan resolves spec against this stream. Keyframe selection scans packets
// once and reuses the result.
func (m *MediaFile) Plan(ctx context.Context, spec selection.Spec) (selection.Plan, error) {
	bounds := selection.Bounds{
		FrameCount: m.info.FrameCount,
		Duration:   m.info.Duration,
		FrameRate:  m.info.FrameRate,
	}
	return selection.Resolve(ctx, spec, bounds, selection.KeyframeListerFunc(func(ctx context.Context) ([]int64, error) {
		g, err := m.Keyframes(ctx)
		if err != nil {
			return nil, err
		}
		return g.FrameIndices(), nil
	}))
}

// Close releases the frame cache and the source.
func (m *MediaFile) Close() error {
	var cacheErr error
	if m.cache != nil {
		cacheErr = m.cache.Close()
	}
	if err := m.source.Close(); err != nil {
		return err
	}
	return cacheErr
}
