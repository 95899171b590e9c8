// Package analysis inspects compressed packets of the primary video stream
// without decoding them: keyframe positions, GOP statistics and frame-rate
// variability.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/user/framesift/pkg/adapters/logger"
	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/metrics"
	"github.com/user/framesift/pkg/ports"
)

// DefaultVFRTolerance is the coefficient of variation of frame durations
// above which a stream is reported as variable frame rate.
const DefaultVFRTolerance = 0.10

// Options configures an Analyzer.
type Options struct {
	VFRTolerance float64
	Logger       ports.Logger
	Metrics      *metrics.Collector
}

// Analyzer runs packet scans. It holds no per-scan state.
type Analyzer struct {
	tolerance float64
	logger    ports.Logger
	metrics   *metrics.Collector
}

// New creates an Analyzer.
func New(opts Options) *Analyzer {
	if opts.VFRTolerance <= 0 {
		opts.VFRTolerance = DefaultVFRTolerance
	}
	return &Analyzer{
		tolerance: opts.VFRTolerance,
		logger:    logger.OrNoop(opts.Logger).WithComponent("analysis"),
		metrics:   opts.Metrics,
	}
}

// scan calls fn for every packet of the primary stream, checking ctx between
// packets.
func (a *Analyzer) scan(ctx context.Context, r ports.PacketReader, fn func(ports.RawPacket)) error {
	primary := r.Info().Index
	n := 0
	defer func() { a.metrics.PacketsScanned(n) }()
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", mediaerr.ErrCancelled, err)
		}
		pkt, err := r.ReadPacket()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read packet %d: %w", n, err)
		}
		n++
		if pkt.StreamIndex != primary {
			continue
		}
		fn(pkt)
	}
}
