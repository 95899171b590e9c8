package timebase

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/user/framesift/pkg/mediaerr"
)

var commonTimeBases = []Rational{
	{1, 90000},
	{1, 1000},
	{1, 15360},
	{1001, 30000},
	{1, 48000},
	{1, 25},
}

func tickDuration(tb Rational) time.Duration {
	return time.Duration((tb.Num*int64(time.Second) + tb.Den - 1) / tb.Den)
}

func TestDurationTimestampRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, tb := range commonTimeBases {
		for i := 0; i < 500; i++ {
			d := time.Duration(rng.Int63n(int64(4 * time.Hour)))
			pts, err := DurationToTimestamp(d, tb)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			back, err := TimestampToDuration(pts, tb)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			diff := back - d
			if diff < 0 {
				diff = -diff
			}
			if diff > tickDuration(tb) {
				t.Fatalf("tb %s: %v -> %d -> %v drifted by %v", tb, d, pts, back, diff)
			}
		}
	}
}

func TestDurationToTimestamp(t *testing.T) {
	tests := []struct {
		d    time.Duration
		tb   Rational
		want int64
	}{
		{time.Second, Rational{1, 90000}, 90000},
		{100 * time.Millisecond, Rational{1, 90000}, 9000},
		{time.Second, Rational{1001, 30000}, 30},
		{-time.Second, Rational{1, 1000}, -1000},
		{1500 * time.Microsecond, Rational{1, 1000}, 2},
	}
	for _, tt := range tests {
		got, err := DurationToTimestamp(tt.d, tt.tb)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("DurationToTimestamp(%v, %s) = %d, want %d", tt.d, tt.tb, got, tt.want)
		}
	}
}

func TestInvalidTimeBase(t *testing.T) {
	for _, tb := range []Rational{{1, 0}, {0, 1}, {-1, 30}} {
		if _, err := DurationToTimestamp(time.Second, tb); !errors.Is(err, mediaerr.ErrInvalidTimeBase) {
			t.Errorf("tb %s: expected ErrInvalidTimeBase, got %v", tb, err)
		}
		if _, err := TimestampToFrameNumber(10, Rational{30, 1}, tb); !errors.Is(err, mediaerr.ErrInvalidTimeBase) {
			t.Errorf("tb %s: expected ErrInvalidTimeBase, got %v", tb, err)
		}
	}
}

func TestConversionOverflow(t *testing.T) {
	if pts, err := DurationToTimestamp(1<<62, Rational{1, 4294967295}); !errors.Is(err, mediaerr.ErrInvalidTimestamp) {
		t.Errorf("expected ErrInvalidTimestamp, got pts %d err %v", pts, err)
	}
	if d, err := TimestampToDuration(math.MaxInt64/2, Rational{1, 1000}); !errors.Is(err, mediaerr.ErrInvalidTimestamp) {
		t.Errorf("expected ErrInvalidTimestamp, got %v err %v", d, err)
	}
	if d, err := FrameNumberToDuration(math.MaxInt64, Rational{30, 1}); !errors.Is(err, mediaerr.ErrInvalidTimestamp) {
		t.Errorf("expected ErrInvalidTimestamp, got %v err %v", d, err)
	}
	if d, err := TimestampToDuration(math.MinInt64/2, Rational{1, 1000}); !errors.Is(err, mediaerr.ErrInvalidTimestamp) {
		t.Errorf("expected ErrInvalidTimestamp, got %v err %v", d, err)
	}
	// Large but representable values still convert.
	if pts, err := DurationToTimestamp(time.Duration(math.MaxInt64), Rational{1, 1000}); err != nil || pts != 9223372036855 {
		t.Errorf("got pts %d err %v", pts, err)
	}
}

func TestTimestampToFrameNumberFloors(t *testing.T) {
	rate := Rational{30, 1}
	tb := Rational{1, 90000}
	tests := []struct {
		pts  int64
		want int64
	}{
		{0, 0},
		{2999, 0},
		{3000, 1},
		{4500, 1},
		{5999, 1},
		{6000, 2},
		{-1, -1},
	}
	for _, tt := range tests {
		got, err := TimestampToFrameNumber(tt.pts, rate, tb)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("TimestampToFrameNumber(%d) = %d, want %d", tt.pts, got, tt.want)
		}
	}
}

func TestFrameNumberRoundTrip(t *testing.T) {
	rates := []Rational{{30, 1}, {30000, 1001}, {24000, 1001}, {25, 1}, {60, 1}}
	for _, rate := range rates {
		for _, tb := range commonTimeBases {
			for index := int64(0); index < 2000; index += 7 {
				pts, err := FrameNumberToTimestamp(index, rate, tb)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				// Ticks coarser than a frame cannot round-trip.
				tpf, _ := TicksPerFrame(rate, tb)
				if tpf < 2 {
					continue
				}
				got, err := TimestampToFrameNumber(pts, rate, tb)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != index && got != index-1 {
					t.Fatalf("rate %s tb %s: frame %d -> pts %d -> frame %d", rate, tb, index, pts, got)
				}
			}
		}
	}
}

func TestFrameNumberDurationRoundTrip(t *testing.T) {
	for _, rate := range []Rational{{30, 1}, {30000, 1001}, {24000, 1001}} {
		for index := int64(0); index < 5000; index++ {
			d, err := FrameNumberToDuration(index, rate)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, err := DurationToFrameNumber(d, rate)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != index {
				t.Fatalf("rate %s: frame %d -> %v -> frame %d", rate, index, d, got)
			}
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Rational
		wantErr bool
	}{
		{"30000/1001", Rational{30000, 1001}, false},
		{"30", Rational{30, 1}, false},
		{" 60/2 ", Rational{30, 1}, false},
		{"1/0", Rational{}, true},
		{"abc", Rational{}, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
