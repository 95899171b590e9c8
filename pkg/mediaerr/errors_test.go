package mediaerr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindOther},
		{"range", &RangeError{Start: "10", End: "5"}, KindValidation},
		{"interval", &IntervalError{Step: "0"}, KindValidation},
		{"frame", &FrameError{Index: 200, FrameCount: 150}, KindValidation},
		{"timestamp", &TimestampError{}, KindValidation},
		{"timebase", &TimeBaseError{Num: 1, Den: 0}, KindValidation},
		{"seek", &SeekError{PTS: 3000, Err: io.ErrUnexpectedEOF}, KindExecution},
		{"decode", &DecodeError{FrameIndex: 42}, KindExecution},
		{"no keyframes", ErrNoKeyframesFound, KindExecution},
		{"cancelled", fmt.Errorf("stream: %w", ErrCancelled), KindCancelled},
		{"wrapped run", &RunError{Worker: 1, Err: &DecodeError{FrameIndex: 3}}, KindExecution},
		{"other", io.EOF, KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeekErrorKeepsCause(t *testing.T) {
	err := &SeekError{PTS: 9000, Err: io.ErrUnexpectedEOF}
	if !errors.Is(err, ErrSeekFailed) {
		t.Error("expected ErrSeekFailed")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected cause to be reachable")
	}
}

func TestDecodeErrorAs(t *testing.T) {
	var err error = &RunError{Worker: 2, First: 60, Last: 90, Err: &DecodeError{FrameIndex: 75}}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatal("expected DecodeError in chain")
	}
	if de.FrameIndex != 75 {
		t.Errorf("FrameIndex = %d, want 75", de.FrameIndex)
	}
}
