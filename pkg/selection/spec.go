// Package selection turns a declarative frame selection into a validated,
// sorted, duplicate-free list of frame indices.
package selection

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the variant of a Spec.
type Kind int

const (
	KindSingle Kind = iota
	KindRange
	KindInterval
	KindTimeRange
	KindTimeInterval
	KindSpecific
	KindSegments
	KindKeyframesOnly
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindRange:
		return "range"
	case KindInterval:
		return "interval"
	case KindTimeRange:
		return "time-range"
	case KindTimeInterval:
		return "time-interval"
	case KindSpecific:
		return "specific"
	case KindSegments:
		return "segments"
	case KindKeyframesOnly:
		return "keyframes"
	default:
		return "unknown"
	}
}

// Segment is a closed time interval [Start, End].
type Segment struct {
	Start time.Duration
	End   time.Duration
}

// Spec is an immutable selection request. Build one with the constructors.
type Spec struct {
	kind     Kind
	start    int64
	end      int64
	step     int64
	t0       time.Duration
	t1       time.Duration
	tstep    time.Duration
	frames   []int64
	segments []Segment
}

// Single selects one frame.
func Single(index int64) Spec {
	return Spec{kind: KindSingle, start: index, end: index}
}

// Range selects frames start..end inclusive.
func Range(start, end int64) Spec {
	return Spec{kind: KindRange, start: start, end: end}
}

// Interval selects every step-th frame starting at 0.
func Interval(step int64) Spec {
	return Spec{kind: KindInterval, step: step}
}

// TimeRange selects the frames covering [t0, t1].
func TimeRange(t0, t1 time.Duration) Spec {
	return Spec{kind: KindTimeRange, t0: t0, t1: t1}
}

// TimeInterval samples one frame every step starting at t0.
func TimeInterval(t0, step time.Duration) Spec {
	return Spec{kind: KindTimeInterval, t0: t0, tstep: step}
}

// Specific selects an explicit list of frames. Order and duplicates in the
// input do not matter.
func Specific(frames ...int64) Spec {
	return Spec{kind: KindSpecific, frames: append([]int64(nil), frames...)}
}

// Segments selects the union of several time ranges.
func Segments(segments ...Segment) Spec {
	return Spec{kind: KindSegments, segments: append([]Segment(nil), segments...)}
}

// KeyframesOnly selects every keyframe found by a packet scan.
func KeyframesOnly() Spec {
	return Spec{kind: KindKeyframesOnly}
}

// Kind returns the variant.
func (s Spec) Kind() Kind { return s.kind }

func (s Spec) String() string {
	switch s.kind {
	case KindSingle:
		return fmt.Sprintf("single(%d)", s.start)
	case KindRange:
		return fmt.Sprintf("range(%d..%d)", s.start, s.end)
	case KindInterval:
		return fmt.Sprintf("interval(%d)", s.step)
	case KindTimeRange:
		return fmt.Sprintf("time-range(%s..%s)", s.t0, s.t1)
	case KindTimeInterval:
		return fmt.Sprintf("time-interval(%s every %s)", s.t0, s.tstep)
	case KindSpecific:
		return fmt.Sprintf("specific(%d frames)", len(s.frames))
	case KindSegments:
		parts := make([]string, len(s.segments))
		for i, seg := range s.segments {
			parts[i] = fmt.Sprintf("%s..%s", seg.Start, seg.End)
		}
		return "segments(" + strings.Join(parts, ", ") + ")"
	case KindKeyframesOnly:
		return "keyframes"
	default:
		return "unknown"
	}
}
