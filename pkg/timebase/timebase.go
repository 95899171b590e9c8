// Package timebase converts between durations, frame indices and stream
// timestamps. All arithmetic is exact rational arithmetic on big integers;
// rounding happens once, at the end of each conversion.
package timebase

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/user/framesift/pkg/mediaerr"
)

// Rational is a num/den pair used for time bases and frame rates.
type Rational struct {
	Num int64
	Den int64
}

// New returns num/den reduced to lowest terms with a positive denominator.
func New(num, den int64) Rational {
	return Rational{Num: num, Den: den}.Reduce()
}

// Valid reports whether r is usable as a time base or frame rate.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Reduce returns r in lowest terms with a positive denominator.
func (r Rational) Reduce() Rational {
	if r.Den == 0 {
		return r
	}
	if r.Den < 0 {
		r.Num, r.Den = -r.Num, -r.Den
	}
	g := gcd(abs(r.Num), r.Den)
	if g > 1 {
		r.Num /= g
		r.Den /= g
	}
	return r
}

// Float64 returns num/den as a float. Invalid rationals return 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Invert returns den/num.
func (r Rational) Invert() Rational {
	return Rational{Num: r.Den, Den: r.Num}
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Validate returns a *mediaerr.TimeBaseError when r is not positive.
func (r Rational) Validate() error {
	if !r.Valid() {
		return &mediaerr.TimeBaseError{Num: r.Num, Den: r.Den}
	}
	return nil
}

// Parse reads "num/den" or a plain integer such as "30".
func Parse(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	numStr, denStr, found := strings.Cut(s, "/")
	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
	}
	den := int64(1)
	if found {
		den, err = strconv.ParseInt(strings.TrimSpace(denStr), 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
		}
	}
	r := Rational{Num: num, Den: den}
	if err := r.Validate(); err != nil {
		return Rational{}, err
	}
	return r.Reduce(), nil
}

var nanosPerSecond = big.NewInt(int64(time.Second))

// DurationToTimestamp converts d to a timestamp in tb units, rounded to the
// nearest tick.
func DurationToTimestamp(d time.Duration, tb Rational) (int64, error) {
	if err := tb.Validate(); err != nil {
		return 0, err
	}
	// pts = d * den / (num * 1e9)
	n := new(big.Int).Mul(big.NewInt(int64(d)), big.NewInt(tb.Den))
	q := new(big.Int).Mul(big.NewInt(tb.Num), nanosPerSecond)
	return roundDiv(n, q)
}

// TimestampToDuration converts pts in tb units to a duration, rounded to the
// nearest nanosecond.
func TimestampToDuration(pts int64, tb Rational) (time.Duration, error) {
	if err := tb.Validate(); err != nil {
		return 0, err
	}
	n := new(big.Int).Mul(big.NewInt(pts), big.NewInt(tb.Num))
	n.Mul(n, nanosPerSecond)
	v, err := roundDiv(n, big.NewInt(tb.Den))
	return time.Duration(v), err
}

// FrameNumberToTimestamp returns the nominal timestamp of frame index at the
// given rate, in tb units, rounded to the nearest tick.
func FrameNumberToTimestamp(index int64, rate, tb Rational) (int64, error) {
	if err := rate.Validate(); err != nil {
		return 0, err
	}
	if err := tb.Validate(); err != nil {
		return 0, err
	}
	// pts = index * rate.den * tb.den / (rate.num * tb.num)
	n := new(big.Int).Mul(big.NewInt(index), big.NewInt(rate.Den))
	n.Mul(n, big.NewInt(tb.Den))
	q := new(big.Int).Mul(big.NewInt(rate.Num), big.NewInt(tb.Num))
	return roundDiv(n, q)
}

// TimestampToFrameNumber maps pts to the frame whose nominal time is the
// latest one not after pts.
func TimestampToFrameNumber(pts int64, rate, tb Rational) (int64, error) {
	if err := rate.Validate(); err != nil {
		return 0, err
	}
	if err := tb.Validate(); err != nil {
		return 0, err
	}
	n := new(big.Int).Mul(big.NewInt(pts), big.NewInt(tb.Num))
	n.Mul(n, big.NewInt(rate.Num))
	q := new(big.Int).Mul(big.NewInt(tb.Den), big.NewInt(rate.Den))
	return floorDiv(n, q)
}

// DurationToFrameNumber maps d to the frame whose nominal time is the latest
// one not after d.
func DurationToFrameNumber(d time.Duration, rate Rational) (int64, error) {
	if err := rate.Validate(); err != nil {
		return 0, err
	}
	n := new(big.Int).Mul(big.NewInt(int64(d)), big.NewInt(rate.Num))
	q := new(big.Int).Mul(big.NewInt(rate.Den), nanosPerSecond)
	return floorDiv(n, q)
}

// FrameNumberToDuration returns the nominal start time of frame index. The
// result is rounded up to the next nanosecond so DurationToFrameNumber maps
// it back to index.
func FrameNumberToDuration(index int64, rate Rational) (time.Duration, error) {
	if err := rate.Validate(); err != nil {
		return 0, err
	}
	n := new(big.Int).Mul(big.NewInt(index), big.NewInt(rate.Den))
	n.Mul(n, nanosPerSecond)
	v, err := ceilDiv(n, big.NewInt(rate.Num))
	return time.Duration(v), err
}

// TicksPerFrame is the nominal frame duration expressed in tb units.
func TicksPerFrame(rate, tb Rational) (float64, error) {
	if err := rate.Validate(); err != nil {
		return 0, err
	}
	if err := tb.Validate(); err != nil {
		return 0, err
	}
	return (float64(rate.Den) * float64(tb.Den)) / (float64(rate.Num) * float64(tb.Num)), nil
}

var errOverflow = fmt.Errorf("conversion overflows int64: %w", mediaerr.ErrInvalidTimestamp)

// floorDiv requires q > 0. big.Int.Div is Euclidean, which is floor division
// for positive divisors.
func floorDiv(n, q *big.Int) (int64, error) {
	r := new(big.Int).Div(n, q)
	if !r.IsInt64() {
		return 0, errOverflow
	}
	return r.Int64(), nil
}

func ceilDiv(n, q *big.Int) (int64, error) {
	v, err := floorDiv(new(big.Int).Neg(n), q)
	if err != nil || v == math.MinInt64 {
		return 0, errOverflow
	}
	return -v, nil
}

// roundDiv rounds half away from zero. Requires q > 0.
func roundDiv(n, q *big.Int) (int64, error) {
	half := new(big.Int).Rsh(q, 1)
	if n.Sign() >= 0 {
		return floorDiv(new(big.Int).Add(n, half), q)
	}
	v, err := floorDiv(new(big.Int).Add(new(big.Int).Neg(n), half), q)
	if err != nil || v == math.MinInt64 {
		return 0, errOverflow
	}
	return -v, nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
