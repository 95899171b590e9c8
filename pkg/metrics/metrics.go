// Package metrics exposes extraction counters through Prometheus. A nil
// *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "framesift"

// Collector groups the extraction metrics.
type Collector struct {
	framesEmitted prometheus.Counter
	framesSkipped prometheus.Counter
	seeks         prometheus.Counter
	runs          prometheus.Counter
	decodeErrors  *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	activeWorkers prometheus.Gauge
	packets       prometheus.Counter
}

// New registers the collector's metrics on reg. Passing nil uses a private
// registry, which keeps repeated construction in tests from colliding.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Collector{
		framesEmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_emitted_total",
			Help:      "Frames converted and delivered to callers.",
		}),
		framesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames decoded to reach a requested frame and then dropped.",
		}),
		seeks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seeks_total",
			Help:      "Keyframe seeks issued to decoders.",
		}),
		runs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Contiguous runs executed.",
		}),
		decodeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Execution failures by kind.",
		}, []string{"kind"}),
		callDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Wall time of extraction calls by mode.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"mode"}),
		activeWorkers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Decode workers currently running.",
		}),
		packets: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_scanned_total",
			Help:      "Compressed packets read by analysis scans.",
		}),
	}
}

// FrameEmitted counts one delivered frame.
func (c *Collector) FrameEmitted() {
	if c == nil {
		return
	}
	c.framesEmitted.Inc()
}

// FrameSkipped counts one decoded but unrequested frame.
func (c *Collector) FrameSkipped() {
	if c == nil {
		return
	}
	c.framesSkipped.Inc()
}

// Seek counts one keyframe seek.
func (c *Collector) Seek() {
	if c == nil {
		return
	}
	c.seeks.Inc()
}

// Run counts one executed run.
func (c *Collector) Run() {
	if c == nil {
		return
	}
	c.runs.Inc()
}

// Error counts one failure of the given kind ("seek", "decode", "cancelled").
func (c *Collector) Error(kind string) {
	if c == nil {
		return
	}
	c.decodeErrors.WithLabelValues(kind).Inc()
}

// PacketsScanned adds n scanned packets.
func (c *Collector) PacketsScanned(n int) {
	if c == nil {
		return
	}
	c.packets.Add(float64(n))
}

// WorkerStarted and WorkerStopped track the active worker gauge.
func (c *Collector) WorkerStarted() {
	if c == nil {
		return
	}
	c.activeWorkers.Inc()
}

func (c *Collector) WorkerStopped() {
	if c == nil {
		return
	}
	c.activeWorkers.Dec()
}

// ObserveCall records the duration of a call that started at start.
func (c *Collector) ObserveCall(mode string, start time.Time) {
	if c == nil {
		return
	}
	c.callDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}
