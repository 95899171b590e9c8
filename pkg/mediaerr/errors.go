// Package mediaerr defines the error taxonomy shared by selection, decoding and
// analysis. Validation errors are raised before any decoding starts; execution
// errors carry the failing timestamp or frame index.
package mediaerr

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Use errors.Is to test for a category.
var (
	ErrInvalidRange     = errors.New("framesift: invalid range")
	ErrInvalidInterval  = errors.New("framesift: invalid interval")
	ErrFrameOutOfRange  = errors.New("framesift: frame out of range")
	ErrInvalidTimestamp = errors.New("framesift: invalid timestamp")
	ErrInvalidTimeBase  = errors.New("framesift: invalid time base")
	ErrSeekFailed       = errors.New("framesift: seek failed")
	ErrDecodeFailed     = errors.New("framesift: decode failed")
	ErrNoKeyframesFound = errors.New("framesift: no keyframes found")
	ErrNoVideoStream    = errors.New("framesift: no video stream")
	ErrNoAudioStream    = errors.New("framesift: no audio stream")
	ErrUnsupported      = errors.New("framesift: not supported by this source")
	ErrCancelled        = errors.New("framesift: cancelled")
)

// Kind groups errors by when they can occur.
type Kind int

const (
	// KindOther is any error outside the taxonomy.
	KindOther Kind = iota
	// KindValidation errors are raised before decoding starts.
	KindValidation
	// KindExecution errors are raised while seeking or decoding.
	KindExecution
	// KindCancelled marks a cooperative stop.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindExecution:
		return "execution"
	case KindCancelled:
		return "cancelled"
	default:
		return "other"
	}
}

// KindOf classifies err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindOther
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrInvalidInterval),
		errors.Is(err, ErrFrameOutOfRange),
		errors.Is(err, ErrInvalidTimestamp),
		errors.Is(err, ErrInvalidTimeBase):
		return KindValidation
	case errors.Is(err, ErrSeekFailed),
		errors.Is(err, ErrDecodeFailed),
		errors.Is(err, ErrNoKeyframesFound):
		return KindExecution
	default:
		return KindOther
	}
}

// RangeError reports a range whose start is after its end.
type RangeError struct {
	Start string
	End   string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range: start %s is after end %s", e.Start, e.End)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// IntervalError reports a non-positive step.
type IntervalError struct {
	Step string
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("invalid interval: step %s must be positive", e.Step)
}

func (e *IntervalError) Unwrap() error { return ErrInvalidInterval }

// FrameError reports a frame index outside [0, FrameCount).
type FrameError struct {
	Index      int64
	FrameCount int64
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d out of range [0, %d)", e.Index, e.FrameCount)
}

func (e *FrameError) Unwrap() error { return ErrFrameOutOfRange }

// TimestampError reports a timestamp outside [0, Duration].
type TimestampError struct {
	Timestamp time.Duration
	Duration  time.Duration
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("timestamp %s outside stream duration %s", e.Timestamp, e.Duration)
}

func (e *TimestampError) Unwrap() error { return ErrInvalidTimestamp }

// TimeBaseError reports a degenerate rational.
type TimeBaseError struct {
	Num int64
	Den int64
}

func (e *TimeBaseError) Error() string {
	return fmt.Sprintf("invalid time base %d/%d", e.Num, e.Den)
}

func (e *TimeBaseError) Unwrap() error { return ErrInvalidTimeBase }

// SeekError reports a failed seek. PTS is in stream time-base units.
type SeekError struct {
	PTS       int64
	Timestamp time.Duration
	Err       error
}

func (e *SeekError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("seek to %s (pts %d) failed", e.Timestamp, e.PTS)
	}
	return fmt.Sprintf("seek to %s (pts %d) failed: %v", e.Timestamp, e.PTS, e.Err)
}

func (e *SeekError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSeekFailed}
	}
	return []error{ErrSeekFailed, e.Err}
}

// DecodeError reports a failed decode at or before FrameIndex.
type DecodeError struct {
	FrameIndex int64
	Err        error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode failed at frame %d", e.FrameIndex)
	}
	return fmt.Sprintf("decode failed at frame %d: %v", e.FrameIndex, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecodeFailed}
	}
	return []error{ErrDecodeFailed, e.Err}
}

// RunError wraps a failure inside one contiguous run of a parallel call.
type RunError struct {
	Worker int
	First  int64
	Last   int64
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("worker %d: run [%d, %d]: %v", e.Worker, e.First, e.Last, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
