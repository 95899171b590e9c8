package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/framesift/pkg/ports"
)

// ProgressInfo is reported after emitted frames.
type ProgressInfo struct {
	Current   int
	Total     int
	Index     int64
	Timestamp time.Duration
	Elapsed   time.Duration
	ETA       time.Duration
}

// Percent returns Current/Total in [0, 100].
func (p ProgressInfo) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Current) * 100 / float64(p.Total)
}

// ProgressFunc receives progress reports. Calls are serialized but may come
// from different worker goroutines.
type ProgressFunc func(ProgressInfo)

// Tracker counts emitted frames for one call and invokes the progress
// callback every batch frames and on the last frame. A nil *Tracker is inert.
type Tracker struct {
	fn      ProgressFunc
	total   int
	batch   int
	start   time.Time
	current atomic.Int64
	mu      sync.Mutex
	logger  ports.Logger
}

// NewTracker returns nil when fn is nil.
func NewTracker(total, batch int, fn ProgressFunc, logger ports.Logger) *Tracker {
	if fn == nil {
		return nil
	}
	if batch < 1 {
		batch = 1
	}
	return &Tracker{fn: fn, total: total, batch: batch, start: time.Now(), logger: logger}
}

// Advance records one emitted frame.
func (t *Tracker) Advance(index int64, ts time.Duration) {
	if t == nil {
		return
	}
	n := int(t.current.Add(1))
	if n%t.batch != 0 && n != t.total {
		return
	}
	elapsed := time.Since(t.start)
	var eta time.Duration
	if n < t.total {
		eta = time.Duration(float64(elapsed) / float64(n) * float64(t.total-n))
	}
	t.report(ProgressInfo{
		Current:   n,
		Total:     t.total,
		Index:     index,
		Timestamp: ts,
		Elapsed:   elapsed,
		ETA:       eta,
	})
}

// report recovers callback panics and logs them.
func (t *Tracker) report(info ProgressInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	defer func() {
		if r := recover(); r != nil && t.logger != nil {
			t.logger.Warn("Progress callback panicked: %v", r)
		}
	}()
	t.fn(info)
}
