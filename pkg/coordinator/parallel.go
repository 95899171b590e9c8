package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/user/framesift/pkg/engine"
	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/selection"
)

// indexedRun holds one run's frames with the run's position for sorting.
type indexedRun struct {
	index  int
	frames []engine.FrameRecord
}

// ExecuteParallel splits plan into runs and decodes them on a worker pool.
// Each worker opens its own decoder. Output is identical to Collect. Any
// failure discards all frames and returns the first error.
func (c *Coordinator) ExecuteParallel(ctx context.Context, plan selection.Plan, factory ports.DecoderFactory, workers int) ([]engine.FrameRecord, error) {
	defer c.metrics.ObserveCall("parallel", time.Now())
	runs := plan.Runs(c.engine.GapThreshold())
	if len(runs) == 0 {
		return []engine.FrameRecord{}, nil
	}
	if workers <= 0 {
		workers = c.workers
	}
	workers = min(workers, len(runs))
	c.logger.Debug("Decoding %d frames in %d runs with %d workers", plan.Len(), len(runs), workers)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int, len(runs))
	results := make(chan indexedRun, len(runs))
	errChan := make(chan error, workers)
	tracker := c.engine.NewTracker(plan.Len())

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go c.worker(runCtx, cancel, &wg, w, factory, runs, tracker, jobs, results, errChan)
	}

	for i := range runs {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
		close(errChan)
	}()

	collected := make([]indexedRun, 0, len(runs))
	for r := range results {
		collected = append(collected, r)
	}

	if err := <-errChan; err != nil {
		return nil, err
	}
	if len(collected) != len(runs) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", mediaerr.ErrCancelled, err)
		}
		return nil, mediaerr.ErrCancelled
	}

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].index < collected[j].index
	})

	frames := make([]engine.FrameRecord, 0, plan.Len())
	for _, r := range collected {
		frames = append(frames, r.frames...)
	}
	return frames, nil
}

func (c *Coordinator) worker(
	ctx context.Context,
	cancel context.CancelFunc,
	wg *sync.WaitGroup,
	id int,
	factory ports.DecoderFactory,
	runs []selection.Run,
	tracker *engine.Tracker,
	jobs <-chan int,
	results chan<- indexedRun,
	errChan chan<- error,
) {
	defer wg.Done()
	c.metrics.WorkerStarted()
	defer c.metrics.WorkerStopped()

	fail := func(err error) {
		select {
		case errChan <- err:
		default:
		}
		cancel()
	}

	var dec ports.Decoder
	defer func() {
		if dec != nil {
			dec.Close()
		}
	}()

	for idx := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if dec == nil {
			d, err := factory.OpenDecoder()
			if err != nil {
				fail(fmt.Errorf("worker %d: open decoder: %w", id, err))
				return
			}
			dec = d
		}

		run := runs[idx]
		frames := make([]engine.FrameRecord, 0, len(run.Indices))
		err := c.engine.ExecuteRun(ctx, dec, run, tracker, func(r engine.FrameRecord) error {
			frames = append(frames, r)
			return nil
		})
		if err != nil {
			fail(&mediaerr.RunError{Worker: id, First: run.First(), Last: run.Last(), Err: err})
			return
		}
		results <- indexedRun{index: idx, frames: frames}
	}
}
