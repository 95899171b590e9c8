package coordinator

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/user/framesift/pkg/engine"
	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/selection"
)

// Stream delivers frames decoded by a background producer through a bounded
// buffer. Consumers must either drain it or call Cancel; a producer blocked on
// a full buffer holds its decoder until one of the two happens.
type Stream struct {
	id     string
	frames chan engine.FrameRecord
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// ExecuteAsync starts decoding plan in the background and returns at once.
// Frames arrive in ascending index order. After the stream is drained, Err
// reports the producer's outcome; a cancelled stream reports ErrCancelled.
func (c *Coordinator) ExecuteAsync(ctx context.Context, plan selection.Plan, factory ports.DecoderFactory) *Stream {
	sctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		id:     uuid.NewString(),
		frames: make(chan engine.FrameRecord, c.capacity),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.logger.Debug("Stream %s: %d frames, buffer %d", s.id, plan.Len(), c.capacity)
	go c.produce(sctx, s, plan, factory)
	return s
}

func (c *Coordinator) produce(ctx context.Context, s *Stream, plan selection.Plan, factory ports.DecoderFactory) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveCall("async", start)
		s.cancel()
		close(s.frames)
		close(s.done)
	}()

	dec, err := factory.OpenDecoder()
	if err != nil {
		s.err = err
		return
	}
	defer dec.Close()

	s.err = c.engine.Execute(ctx, plan, dec, func(r engine.FrameRecord) error {
		select {
		case s.frames <- r:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", mediaerr.ErrCancelled, ctx.Err())
		}
	})
	if s.err != nil {
		c.logger.Debug("Stream %s stopped: %v", s.id, s.err)
	}
}

// ID identifies the stream in logs.
func (s *Stream) ID() string { return s.id }

// Frames exposes the buffer for use in select statements. It is closed when
// the producer finishes.
func (s *Stream) Frames() <-chan engine.FrameRecord { return s.frames }

// Next blocks for the next frame. It returns false when the stream is
// exhausted or ctx is done.
func (s *Stream) Next(ctx context.Context) (engine.FrameRecord, bool) {
	select {
	case r, ok := <-s.frames:
		return r, ok
	case <-ctx.Done():
		return engine.FrameRecord{}, false
	}
}

// All ranges over the remaining frames. Breaking out of the loop cancels the
// stream.
func (s *Stream) All() iter.Seq[engine.FrameRecord] {
	return func(yield func(engine.FrameRecord) bool) {
		for r := range s.frames {
			if !yield(r) {
				s.Cancel()
				return
			}
		}
	}
}

// Cancel asks the producer to stop. Frames already buffered stay readable.
func (s *Stream) Cancel() {
	s.cancel()
}

// Err waits for the producer to finish and returns its error.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// Done is closed when the producer has finished.
func (s *Stream) Done() <-chan struct{} { return s.done }
