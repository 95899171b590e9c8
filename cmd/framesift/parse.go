package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/user/framesift/pkg/selection"
)

// selectionFlags holds the mutually exclusive selection flags of the
// extract command.
type selectionFlags struct {
	Frames    []int64
	Range     string
	Interval  int64
	TimeRange string
	Every     string
	Start     string
	Segments  string
	Keyframes bool
}

var errSelection = errors.New("exactly one of --frame, --range, --interval, --time-range, --every, --segments or --keyframes is required")

// spec turns the flags into a selection. Exactly one selector may be set.
func (f selectionFlags) spec() (selection.Spec, error) {
	var specs []selection.Spec
	var errs []error
	add := func(s selection.Spec, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		specs = append(specs, s)
	}

	switch len(f.Frames) {
	case 0:
	case 1:
		add(selection.Single(f.Frames[0]), nil)
	default:
		add(selection.Specific(f.Frames...), nil)
	}
	if f.Range != "" {
		start, end, err := parseIndexRange(f.Range)
		add(selection.Range(start, end), err)
	}
	if f.Interval != 0 {
		add(selection.Interval(f.Interval), nil)
	}
	if f.TimeRange != "" {
		t0, t1, err := parseTimeRange(f.TimeRange)
		add(selection.TimeRange(t0, t1), err)
	}
	if f.Every != "" {
		add(parseEvery(f.Every, f.Start))
	}
	if f.Segments != "" {
		add(parseSegments(f.Segments))
	}
	if f.Keyframes {
		add(selection.KeyframesOnly(), nil)
	}

	if len(errs) > 0 {
		return selection.Spec{}, errors.Join(errs...)
	}
	if len(specs) != 1 {
		return selection.Spec{}, errSelection
	}
	return specs[0], nil
}

// parseIndexRange accepts "start-end" or "start:end", both inclusive.
func parseIndexRange(s string) (int64, int64, error) {
	a, b, ok := cutRange(s, "-:")
	if !ok {
		return 0, 0, fmt.Errorf("invalid frame range %q", s)
	}
	start, err := strconv.ParseInt(a, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid frame range %q: %w", s, err)
	}
	end, err := strconv.ParseInt(b, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid frame range %q: %w", s, err)
	}
	return start, end, nil
}

// parseTimeRange accepts two timestamps separated by "-" or "..". Clock
// notation uses ":" so it is not a separator here.
func parseTimeRange(s string) (time.Duration, time.Duration, error) {
	a, b, ok := strings.Cut(s, "..")
	if !ok {
		a, b, ok = cutRange(s, "-")
	}
	if !ok {
		return 0, 0, fmt.Errorf("invalid time range %q", s)
	}
	t0, err := parseTimestamp(a)
	if err != nil {
		return 0, 0, err
	}
	t1, err := parseTimestamp(b)
	if err != nil {
		return 0, 0, err
	}
	return t0, t1, nil
}

func parseEvery(every, start string) (selection.Spec, error) {
	step, err := parseTimestamp(every)
	if err != nil {
		return selection.Spec{}, err
	}
	var t0 time.Duration
	if start != "" {
		if t0, err = parseTimestamp(start); err != nil {
			return selection.Spec{}, err
		}
	}
	return selection.TimeInterval(t0, step), nil
}

// parseSegments accepts a comma separated list of time ranges.
func parseSegments(s string) (selection.Spec, error) {
	var segs []selection.Segment
	for _, part := range strings.Split(s, ",") {
		t0, t1, err := parseTimeRange(strings.TrimSpace(part))
		if err != nil {
			return selection.Spec{}, err
		}
		segs = append(segs, selection.Segment{Start: t0, End: t1})
	}
	return selection.Segments(segs...), nil
}

// cutRange splits s at the first separator after the first byte, so a
// leading minus sign stays with the start value.
func cutRange(s, seps string) (string, string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return "", "", false
	}
	i := strings.IndexAny(s[1:], seps)
	if i < 0 {
		return "", "", false
	}
	i++
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
}

// parseTimestamp accepts Go durations ("1m30s", "250ms"), plain seconds
// ("12.5") and clock notation ("01:02.5", "1:02:03").
func parseTimestamp(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty timestamp")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	sec, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || sec < 0 || sec >= 60 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	total := time.Duration(sec * float64(time.Second))
	unit := time.Minute
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.ParseUint(parts[i], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		total += time.Duration(n) * unit
		unit *= 60
	}
	return total, nil
}
