// Package engine executes frame plans against a decoder: one keyframe seek
// per run, then forward decoding, converting only the requested frames.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/user/framesift/pkg/adapters/logger"
	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/metrics"
	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/selection"
	"github.com/user/framesift/pkg/timebase"
)

// Options configures an Engine.
type Options struct {
	// GapThreshold splits plans into runs. Zero uses the default of 30.
	GapThreshold int64
	Output       OutputFormat
	// Cancel, when set, stops every call made through this engine.
	Cancel        *CancelToken
	Progress      ProgressFunc
	ProgressBatch int
	Logger        ports.Logger
	Metrics       *metrics.Collector
}

// DefaultOptions returns RGB24 output at the decoded size.
func DefaultOptions() Options {
	return Options{
		GapThreshold:  selection.DefaultGapThreshold,
		Output:        OutputFormat{Pixel: ports.PixelRGB24, KeepAspect: true},
		ProgressBatch: 1,
	}
}

// FrameFunc receives each emitted frame in ascending index order. Returning
// an error stops the call with that error.
type FrameFunc func(FrameRecord) error

// Engine is stateless between calls and safe for concurrent use as long as
// each call has its own Decoder.
type Engine struct {
	opts    Options
	logger  ports.Logger
	metrics *metrics.Collector
}

// New validates opts and builds an Engine.
func New(opts Options) (*Engine, error) {
	if err := opts.Output.Validate(); err != nil {
		return nil, err
	}
	if opts.GapThreshold <= 0 {
		opts.GapThreshold = selection.DefaultGapThreshold
	}
	if opts.ProgressBatch < 1 {
		opts.ProgressBatch = 1
	}
	return &Engine{
		opts:    opts,
		logger:  logger.OrNoop(opts.Logger).WithComponent("engine"),
		metrics: opts.Metrics,
	}, nil
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// GapThreshold returns the run partition threshold.
func (e *Engine) GapThreshold() int64 { return e.opts.GapThreshold }

// NewTracker creates a progress tracker for a call of total frames. It
// returns nil when no progress callback is configured.
func (e *Engine) NewTracker(total int) *Tracker {
	return NewTracker(total, e.opts.ProgressBatch, e.opts.Progress, e.logger)
}

// Execute runs plan on dec and hands frames to onFrame in ascending index
// order. The caller keeps ownership of dec.
func (e *Engine) Execute(ctx context.Context, plan selection.Plan, dec ports.Decoder, onFrame FrameFunc) error {
	runs := plan.Runs(e.opts.GapThreshold)
	e.logger.Debug("Executing %d frames in %d runs", plan.Len(), len(runs))
	tracker := e.NewTracker(plan.Len())
	for _, run := range runs {
		if err := e.ExecuteRun(ctx, dec, run, tracker, onFrame); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteRun seeks once to the keyframe at or before the run's first frame
// and decodes forward through the run.
func (e *Engine) ExecuteRun(ctx context.Context, dec ports.Decoder, run selection.Run, tracker *Tracker, onFrame FrameFunc) error {
	if err := e.checkCancel(ctx); err != nil {
		return err
	}
	info := dec.Info()
	if err := e.seek(dec, info, run.First()); err != nil {
		return err
	}
	e.metrics.Run()
	e.logger.Debug("Run %d..%d: %d frames", run.First(), run.Last(), len(run.Indices))
	_, err := e.decodeForward(ctx, dec, info, run.Indices, tracker, onFrame)
	return err
}

func (e *Engine) seek(dec ports.Decoder, info ports.StreamInfo, index int64) error {
	pts, err := timebase.FrameNumberToTimestamp(index, info.FrameRate, info.TimeBase)
	if err != nil {
		return err
	}
	if err := dec.SeekToKeyframe(pts); err != nil {
		e.metrics.Error("seek")
		ts, _ := timebase.TimestampToDuration(pts, info.TimeBase)
		return &mediaerr.SeekError{PTS: pts, Timestamp: ts, Err: err}
	}
	e.metrics.Seek()
	return nil
}

// decodeForward decodes until every index in want has been emitted and
// returns the index of the last decoded frame. Indices the decoder never
// produces are skipped.
func (e *Engine) decodeForward(ctx context.Context, dec ports.Decoder, info ports.StreamInfo, want []int64, tracker *Tracker, onFrame FrameFunc) (int64, error) {
	last := int64(-1)
	next := 0
	for next < len(want) {
		raw, err := dec.DecodeNext()
		if err != nil {
			e.metrics.Error("decode")
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return last, &mediaerr.DecodeError{FrameIndex: want[next], Err: err}
		}
		idx, err := timebase.TimestampToFrameNumber(raw.PTS, info.FrameRate, info.TimeBase)
		if err != nil {
			return last, err
		}
		last = idx

		if err := e.checkCancel(ctx); err != nil {
			return last, err
		}

		for next < len(want) && want[next] < idx {
			e.logger.Warn("Frame %d was not produced by the decoder", want[next])
			e.metrics.Error("missing")
			next++
		}
		if next == len(want) {
			break
		}
		if want[next] != idx {
			e.metrics.FrameSkipped()
			continue
		}

		rec, err := e.record(raw, idx, info)
		if err != nil {
			e.metrics.Error("decode")
			return last, &mediaerr.DecodeError{FrameIndex: idx, Err: err}
		}
		if err := onFrame(rec); err != nil {
			return last, err
		}
		e.metrics.FrameEmitted()
		tracker.Advance(idx, rec.Timestamp)
		next++
	}
	return last, nil
}

func (e *Engine) record(raw ports.RawFrame, idx int64, info ports.StreamInfo) (FrameRecord, error) {
	pix, w, h, err := e.opts.Output.convert(raw)
	if err != nil {
		return FrameRecord{}, err
	}
	ts, err := timebase.TimestampToDuration(raw.PTS, info.TimeBase)
	if err != nil {
		return FrameRecord{}, err
	}
	return FrameRecord{
		Index:       idx,
		Timestamp:   ts,
		PTS:         raw.PTS,
		Keyframe:    raw.Keyframe,
		PictureType: raw.PictureType,
		Width:       w,
		Height:      h,
		Format:      e.opts.Output.Pixel,
		Pix:         pix,
	}, nil
}

func (e *Engine) checkCancel(ctx context.Context) error {
	if e.opts.Cancel.Cancelled() {
		e.metrics.Error("cancelled")
		return mediaerr.ErrCancelled
	}
	if err := ctx.Err(); err != nil {
		e.metrics.Error("cancelled")
		return fmt.Errorf("%w: %w", mediaerr.ErrCancelled, err)
	}
	return nil
}
