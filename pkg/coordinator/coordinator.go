// Package coordinator runs frame plans in the available execution modes:
// sequential collection, push callbacks, lazy iteration, a parallel worker
// pool and an asynchronous bounded stream. Every mode drives the same engine
// and emits frames in ascending index order.
package coordinator

import (
	"context"
	"errors"
	"iter"
	"runtime"
	"time"

	"github.com/user/framesift/pkg/adapters/logger"
	"github.com/user/framesift/pkg/engine"
	"github.com/user/framesift/pkg/metrics"
	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/selection"
)

// DefaultChannelCapacity bounds the frames buffered ahead of an async consumer.
const DefaultChannelCapacity = 8

// Options configures a Coordinator.
type Options struct {
	// Workers is the parallel pool size. Zero uses GOMAXPROCS.
	Workers         int
	ChannelCapacity int
	Logger          ports.Logger
	Metrics         *metrics.Collector
}

// Coordinator owns no decoders; each call opens its own through a factory.
type Coordinator struct {
	engine   *engine.Engine
	workers  int
	capacity int
	logger   ports.Logger
	metrics  *metrics.Collector
}

// New creates a Coordinator around e.
func New(e *engine.Engine, opts Options) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.ChannelCapacity <= 0 {
		opts.ChannelCapacity = DefaultChannelCapacity
	}
	return &Coordinator{
		engine:   e,
		workers:  opts.Workers,
		capacity: opts.ChannelCapacity,
		logger:   logger.OrNoop(opts.Logger).WithComponent("coordinator"),
		metrics:  opts.Metrics,
	}
}

// Workers returns the default pool size.
func (c *Coordinator) Workers() int { return c.workers }

// ForEach decodes plan with one fresh decoder and pushes frames to fn.
func (c *Coordinator) ForEach(ctx context.Context, plan selection.Plan, factory ports.DecoderFactory, fn engine.FrameFunc) error {
	defer c.metrics.ObserveCall("push", time.Now())
	dec, err := factory.OpenDecoder()
	if err != nil {
		return err
	}
	defer dec.Close()
	return c.engine.Execute(ctx, plan, dec, fn)
}

// Collect decodes plan with one fresh decoder and returns every frame. On
// cancellation it returns the frames delivered so far along with the error.
func (c *Coordinator) Collect(ctx context.Context, plan selection.Plan, factory ports.DecoderFactory) ([]engine.FrameRecord, error) {
	defer c.metrics.ObserveCall("sequential", time.Now())
	frames := make([]engine.FrameRecord, 0, plan.Len())
	dec, err := factory.OpenDecoder()
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	err = c.engine.Execute(ctx, plan, dec, func(r engine.FrameRecord) error {
		frames = append(frames, r)
		return nil
	})
	return frames, err
}

var errStopIteration = errors.New("coordinator: iteration stopped")

// Iterate returns a lazy sequence over plan. Nothing is decoded until the
// sequence is ranged over, and each frame is decoded only when the loop asks
// for it. A failure is yielded once as the final element.
func (c *Coordinator) Iterate(ctx context.Context, plan selection.Plan, factory ports.DecoderFactory) iter.Seq2[engine.FrameRecord, error] {
	return func(yield func(engine.FrameRecord, error) bool) {
		dec, err := factory.OpenDecoder()
		if err != nil {
			yield(engine.FrameRecord{}, err)
			return
		}
		defer dec.Close()
		err = c.engine.Execute(ctx, plan, dec, func(r engine.FrameRecord) error {
			if !yield(r, nil) {
				return errStopIteration
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopIteration) {
			yield(engine.FrameRecord{}, err)
		}
	}
}
