package analysis

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/user/framesift/pkg/ports"
)

// VfrReport describes frame-duration variability. Durations are in seconds.
type VfrReport struct {
	IsVariable          bool
	Frames              int
	Samples             int
	MinFPS              float64
	MaxFPS              float64
	MeanFPS             float64
	NominalFPS          float64
	MeanFrameDuration   float64
	StdDevDuration      float64
	DeviatesFromNominal bool
	Timestamps          []time.Duration
}

// DetectVFR collects presentation timestamps of the primary stream, sorts
// them and measures the spread of the positive deltas. Streams with fewer
// than two distinct timestamps are reported as constant.
func (a *Analyzer) DetectVFR(ctx context.Context, r ports.PacketReader) (VfrReport, error) {
	info := r.Info()
	var pts []int64
	if err := a.scan(ctx, r, func(pkt ports.RawPacket) {
		pts = append(pts, pkt.PTS)
	}); err != nil {
		return VfrReport{}, err
	}
	slices.Sort(pts)

	tick := info.TimeBase.Float64()
	rep := VfrReport{
		Frames:     len(pts),
		NominalFPS: info.FrameRate.Float64(),
		Timestamps: make([]time.Duration, len(pts)),
	}
	for i, p := range pts {
		rep.Timestamps[i] = time.Duration(float64(p) * tick * float64(time.Second))
	}

	var durations []float64
	for i := 1; i < len(pts); i++ {
		if d := pts[i] - pts[i-1]; d > 0 {
			durations = append(durations, float64(d)*tick)
		}
	}
	rep.Samples = len(durations)
	if len(durations) == 0 {
		rep.MinFPS, rep.MaxFPS, rep.MeanFPS = rep.NominalFPS, rep.NominalFPS, rep.NominalFPS
		return rep, nil
	}

	minDur, maxDur, sum := durations[0], durations[0], 0.0
	for _, d := range durations {
		minDur = math.Min(minDur, d)
		maxDur = math.Max(maxDur, d)
		sum += d
	}
	mean := sum / float64(len(durations))
	var sq float64
	for _, d := range durations {
		sq += (d - mean) * (d - mean)
	}
	std := math.Sqrt(sq / float64(len(durations)))

	rep.MeanFrameDuration = mean
	rep.StdDevDuration = std
	rep.MinFPS = 1 / maxDur
	rep.MaxFPS = 1 / minDur
	rep.MeanFPS = math.Min(math.Max(1/mean, rep.MinFPS), rep.MaxFPS)
	rep.IsVariable = std/mean > a.tolerance
	if rep.NominalFPS > 0 {
		rep.DeviatesFromNominal = math.Abs(rep.MeanFPS-rep.NominalFPS)/rep.NominalFPS > a.tolerance
	}

	a.logger.Debug("VFR scan: %d samples, mean %.3f fps, cv %.4f", rep.Samples, rep.MeanFPS, std/mean)
	return rep, nil
}
