package selection

import (
	"fmt"
	"slices"

	"github.com/user/framesift/pkg/mediaerr"
)

// DefaultGapThreshold is the largest index gap that is cheaper to decode
// through than to seek across.
const DefaultGapThreshold int64 = 30

// Plan is a strictly increasing list of in-range frame indices.
type Plan struct {
	indices []int64
}

// NewPlan validates a precomputed index list. The list must be strictly
// increasing and inside [0, frameCount).
func NewPlan(indices []int64, frameCount int64) (Plan, error) {
	for i, idx := range indices {
		if idx < 0 || idx >= frameCount {
			return Plan{}, &mediaerr.FrameError{Index: idx, FrameCount: frameCount}
		}
		if i > 0 && idx <= indices[i-1] {
			return Plan{}, fmt.Errorf("plan indices not strictly increasing at position %d: %w", i, mediaerr.ErrInvalidRange)
		}
	}
	return Plan{indices: slices.Clone(indices)}, nil
}

// Indices returns a copy of the planned frame indices.
func (p Plan) Indices() []int64 { return slices.Clone(p.indices) }

// Len returns the number of planned frames.
func (p Plan) Len() int { return len(p.indices) }

// Empty reports whether the plan has no frames.
func (p Plan) Empty() bool { return len(p.indices) == 0 }

// At returns the i-th planned index.
func (p Plan) At(i int) int64 { return p.indices[i] }

// Run is a maximal contiguous slice of a plan whose consecutive gaps do not
// exceed the gap threshold. Offset is the position of the first index within
// the plan.
type Run struct {
	Offset  int
	Indices []int64
}

// First returns the lowest index of the run.
func (r Run) First() int64 { return r.Indices[0] }

// Last returns the highest index of the run.
func (r Run) Last() int64 { return r.Indices[len(r.Indices)-1] }

// Runs partitions the plan. A threshold of zero or less uses
// DefaultGapThreshold.
func (p Plan) Runs(threshold int64) []Run {
	if len(p.indices) == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultGapThreshold
	}
	var runs []Run
	start := 0
	for i := 1; i <= len(p.indices); i++ {
		if i == len(p.indices) || p.indices[i]-p.indices[i-1] > threshold {
			runs = append(runs, Run{Offset: start, Indices: p.indices[start:i:i]})
			start = i
		}
	}
	return runs
}

// sortUnique sorts and removes duplicates. It is the single normalization
// point for every list-based selection.
func sortUnique(indices []int64) []int64 {
	out := slices.Clone(indices)
	slices.Sort(out)
	return slices.Compact(out)
}
