package selection

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/timebase"
)

// Bounds are the stream limits a Spec is validated against.
type Bounds struct {
	FrameCount int64
	Duration   time.Duration
	FrameRate  timebase.Rational
}

// KeyframeLister supplies keyframe frame numbers for KeyframesOnly.
type KeyframeLister interface {
	KeyframeIndices(ctx context.Context) ([]int64, error)
}

// KeyframeListerFunc adapts a function to KeyframeLister.
type KeyframeListerFunc func(ctx context.Context) ([]int64, error)

// KeyframeIndices calls f.
func (f KeyframeListerFunc) KeyframeIndices(ctx context.Context) ([]int64, error) {
	return f(ctx)
}

// Resolve validates spec against b and expands it into a Plan. Nothing is
// decoded; keyframes may be nil unless spec is KeyframesOnly.
func Resolve(ctx context.Context, spec Spec, b Bounds, keyframes KeyframeLister) (Plan, error) {
	var (
		indices []int64
		err     error
	)
	switch spec.kind {
	case KindSingle:
		indices, err = resolveRange(spec.start, spec.start, b)
	case KindRange:
		indices, err = resolveRange(spec.start, spec.end, b)
	case KindInterval:
		indices, err = resolveInterval(spec.step, b)
	case KindTimeRange:
		indices, err = resolveTimeRange(spec.t0, spec.t1, b)
	case KindTimeInterval:
		indices, err = resolveTimeInterval(spec.t0, spec.tstep, b)
	case KindSpecific:
		indices, err = resolveSpecific(spec.frames, b)
	case KindSegments:
		indices, err = resolveSegments(spec.segments, b)
	case KindKeyframesOnly:
		indices, err = resolveKeyframes(ctx, keyframes, b)
	default:
		err = fmt.Errorf("unknown selection kind %d", spec.kind)
	}
	if err != nil {
		return Plan{}, err
	}
	return Plan{indices: indices}, nil
}

func checkFrame(index int64, b Bounds) error {
	if index < 0 || index >= b.FrameCount {
		return &mediaerr.FrameError{Index: index, FrameCount: b.FrameCount}
	}
	return nil
}

func checkTime(t time.Duration, b Bounds) error {
	if t < 0 || t > b.Duration {
		return &mediaerr.TimestampError{Timestamp: t, Duration: b.Duration}
	}
	return nil
}

func resolveRange(start, end int64, b Bounds) ([]int64, error) {
	if start > end {
		return nil, &mediaerr.RangeError{Start: strconv.FormatInt(start, 10), End: strconv.FormatInt(end, 10)}
	}
	if err := checkFrame(start, b); err != nil {
		return nil, err
	}
	if err := checkFrame(end, b); err != nil {
		return nil, err
	}
	out := make([]int64, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out, nil
}

func resolveInterval(step int64, b Bounds) ([]int64, error) {
	if step <= 0 {
		return nil, &mediaerr.IntervalError{Step: strconv.FormatInt(step, 10)}
	}
	var out []int64
	for i := int64(0); i < b.FrameCount; i += step {
		out = append(out, i)
	}
	return out, nil
}

// frameAt maps t to a frame index, clamping t == Duration onto the last frame.
func frameAt(t time.Duration, b Bounds) (int64, error) {
	idx, err := timebase.DurationToFrameNumber(t, b.FrameRate)
	if err != nil {
		return 0, err
	}
	if idx >= b.FrameCount {
		idx = b.FrameCount - 1
	}
	if idx < 0 {
		return 0, &mediaerr.FrameError{Index: idx, FrameCount: b.FrameCount}
	}
	return idx, nil
}

func resolveTimeRange(t0, t1 time.Duration, b Bounds) ([]int64, error) {
	if t0 > t1 {
		return nil, &mediaerr.RangeError{Start: t0.String(), End: t1.String()}
	}
	if err := checkTime(t0, b); err != nil {
		return nil, err
	}
	if err := checkTime(t1, b); err != nil {
		return nil, err
	}
	f0, err := frameAt(t0, b)
	if err != nil {
		return nil, err
	}
	f1, err := frameAt(t1, b)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, f1-f0+1)
	for i := f0; i <= f1; i++ {
		out = append(out, i)
	}
	return out, nil
}

func resolveTimeInterval(t0, step time.Duration, b Bounds) ([]int64, error) {
	if step <= 0 {
		return nil, &mediaerr.IntervalError{Step: step.String()}
	}
	if err := checkTime(t0, b); err != nil {
		return nil, err
	}
	var out []int64
	for t := t0; ; {
		idx, err := frameAt(t, b)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1] != idx {
			out = append(out, idx)
		}
		if idx >= b.FrameCount-1 {
			break
		}
		// Skip the steps that land inside the same frame.
		next, err := timebase.FrameNumberToDuration(idx+1, b.FrameRate)
		if err != nil {
			return nil, err
		}
		skip := int64(1)
		if gap := next - t; gap > step {
			skip = (int64(gap) + int64(step) - 1) / int64(step)
		}
		if time.Duration(skip) > (b.Duration-t)/step {
			break
		}
		t += time.Duration(skip) * step
	}
	return sortUnique(out), nil
}

func resolveSpecific(frames []int64, b Bounds) ([]int64, error) {
	for _, idx := range frames {
		if err := checkFrame(idx, b); err != nil {
			return nil, err
		}
	}
	return sortUnique(frames), nil
}

func resolveSegments(segments []Segment, b Bounds) ([]int64, error) {
	var union []int64
	for _, seg := range segments {
		indices, err := resolveTimeRange(seg.Start, seg.End, b)
		if err != nil {
			return nil, err
		}
		union = append(union, indices...)
	}
	return resolveSpecific(union, b)
}

func resolveKeyframes(ctx context.Context, keyframes KeyframeLister, b Bounds) ([]int64, error) {
	if keyframes == nil {
		return nil, fmt.Errorf("keyframe selection requires a packet scanner: %w", mediaerr.ErrNoKeyframesFound)
	}
	indices, err := keyframes.KeyframeIndices(ctx)
	if err != nil {
		return nil, err
	}
	in := make([]int64, 0, len(indices))
	for _, idx := range indices {
		// Keyframes past the declared frame count come from streams whose
		// header undercounts; they cannot be decoded by index.
		if idx >= 0 && idx < b.FrameCount {
			in = append(in, idx)
		}
	}
	return sortUnique(in), nil
}
