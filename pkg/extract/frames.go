package extract

import (
	"context"
	"iter"
	"time"

	"github.com/user/framesift/pkg/coordinator"
	"github.com/user/framesift/pkg/engine"
	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/selection"
)

// Frames decodes every selected frame and returns them in index order. On
// cancellation the frames delivered so far are returned with the error.
func (m *MediaFile) Frames(ctx context.Context, spec selection.Spec) ([]engine.FrameRecord, error) {
	plan, err := m.Plan(ctx, spec)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Extracting %d frames (%s)", plan.Len(), spec)
	start := time.Now()
	frames, err := m.coord.Collect(ctx, plan, m.source)
	m.logDone(len(frames), start, err)
	return frames, err
}

// ForEach pushes each selected frame to fn as soon as it is decoded.
func (m *MediaFile) ForEach(ctx context.Context, spec selection.Spec, fn engine.FrameFunc) error {
	plan, err := m.Plan(ctx, spec)
	if err != nil {
		return err
	}
	m.logger.Info("Extracting %d frames (%s)", plan.Len(), spec)
	start := time.Now()
	n := 0
	err = m.coord.ForEach(ctx, plan, m.source, func(r engine.FrameRecord) error {
		n++
		return fn(r)
	})
	m.logDone(n, start, err)
	return err
}

// All returns a lazy sequence of the selected frames. A selection or decode
// error is yielded as the last element.
func (m *MediaFile) All(ctx context.Context, spec selection.Spec) iter.Seq2[engine.FrameRecord, error] {
	return func(yield func(engine.FrameRecord, error) bool) {
		plan, err := m.Plan(ctx, spec)
		if err != nil {
			yield(engine.FrameRecord{}, err)
			return
		}
		for r, err := range m.coord.Iterate(ctx, plan, m.source) {
			if !yield(r, err) {
				return
			}
		}
	}
}

// Parallel decodes runs on a pool of workers, each with its own decoder.
// Results are identical to Frames. Any failure discards all frames. Zero
// workers uses the configured default.
func (m *MediaFile) Parallel(ctx context.Context, spec selection.Spec, workers int) ([]engine.FrameRecord, error) {
	plan, err := m.Plan(ctx, spec)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = m.coord.Workers()
	}
	m.logger.Info("Extracting %d frames (%s) with %d workers", plan.Len(), spec, workers)
	start := time.Now()
	frames, err := m.coord.ExecuteParallel(ctx, plan, m.source, workers)
	m.logDone(len(frames), start, err)
	return frames, err
}

// Stream starts decoding in the background and returns a bounded stream of
// frames. Selection errors are reported immediately.
func (m *MediaFile) Stream(ctx context.Context, spec selection.Spec) (*coordinator.Stream, error) {
	plan, err := m.Plan(ctx, spec)
	if err != nil {
		return nil, err
	}
	s := m.coord.ExecuteAsync(ctx, plan, m.source)
	m.logger.Info("Streaming %d frames (%s) as %s", plan.Len(), spec, s.ID())
	return s, nil
}

// FrameAt decodes a single frame by index, reusing the cached decoder when
// the cache is enabled.
func (m *MediaFile) FrameAt(ctx context.Context, index int64) (engine.FrameRecord, error) {
	if index < 0 || index >= m.info.FrameCount {
		return engine.FrameRecord{}, &mediaerr.FrameError{Index: index, FrameCount: m.info.FrameCount}
	}
	if m.cache != nil {
		return m.cache.Frame(ctx, index)
	}
	frames, err := m.Frames(ctx, selection.Single(index))
	if err != nil {
		return engine.FrameRecord{}, err
	}
	if len(frames) == 0 {
		return engine.FrameRecord{}, &mediaerr.DecodeError{FrameIndex: index}
	}
	return frames[0], nil
}

// FrameAtTime decodes the frame displayed at t.
func (m *MediaFile) FrameAtTime(ctx context.Context, t time.Duration) (engine.FrameRecord, error) {
	plan, err := m.Plan(ctx, selection.TimeRange(t, t))
	if err != nil {
		return engine.FrameRecord{}, err
	}
	return m.FrameAt(ctx, plan.At(0))
}

func (m *MediaFile) logDone(n int, start time.Time, err error) {
	if err != nil {
		m.logger.Warn("Extraction stopped after %d frames: %v", n, err)
		return
	}
	m.logger.Info("Extracted %d frames in %s", n, time.Since(start).Round(time.Millisecond))
}
