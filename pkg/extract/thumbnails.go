package extract

import (
	"context"
	"fmt"

	"github.com/user/framesift/pkg/coordinator"
	"github.com/user/framesift/pkg/engine"
	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/selection"
)

// ThumbnailPlan spaces n frames evenly from the start of the stream with a
// step of FrameCount/n. Streams shorter than n frames select every frame.
func (m *MediaFile) ThumbnailPlan(n int) (selection.Plan, error) {
	if n <= 0 {
		return selection.Plan{}, &mediaerr.IntervalError{Step: fmt.Sprint(n)}
	}
	count := m.info.FrameCount
	if int64(n) >= count {
		return m.Plan(context.Background(), selection.Range(0, count-1))
	}
	step := count / int64(n)
	indices := make([]int64, n)
	for i := range indices {
		indices[i] = int64(i) * step
	}
	return selection.NewPlan(indices, count)
}

// Thumbnails decodes n evenly spaced frames scaled to width pixels wide,
// keeping the aspect ratio. Runs are decoded in parallel.
func (m *MediaFile) Thumbnails(ctx context.Context, n, width int) ([]engine.FrameRecord, error) {
	plan, err := m.ThumbnailPlan(n)
	if err != nil {
		return nil, err
	}

	eo := m.opts.engineOptions()
	eo.Output.Width = width
	eo.Output.Height = 0
	eo.Output.KeepAspect = true
	e, err := engine.New(eo)
	if err != nil {
		return nil, err
	}
	c := coordinator.New(e, coordinator.Options{
		Workers:         m.opts.Workers,
		ChannelCapacity: m.opts.ChannelCapacity,
		Logger:          m.opts.Logger,
		Metrics:         m.opts.Metrics,
	})

	m.logger.Info("Extracting %d thumbnails at %dpx", plan.Len(), width)
	return c.ExecuteParallel(ctx, plan, m.source, c.Workers())
}
