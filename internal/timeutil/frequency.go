// Package timeutil provides calendar frequency parsing and bucket alignment
// for resampling operations.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unit is a calendar unit recognised in frequency strings.
type Unit int

const (
	Minute Unit = iota
	Hour
	Day
	Week
	Month
)

// String returns the canonical spelling of the unit.
func (u Unit) String() string {
	switch u {
	case Minute:
		return "m"
	case Hour:
		return "h"
	case Day:
		return "d"
	case Week:
		return "w"
	case Month:
		return "mo"
	}
	return "?"
}

// Frequency is a bucket width for resampling: a multiplier and a calendar
// unit. Day, week and month widths always have N == 1; sub-day widths must
// divide a day evenly so buckets stay aligned to midnight.
type Frequency struct {
	N    int
	Unit Unit
}

// suffixes maps frequency string suffixes to units. Longer suffixes are
// matched first so "mo" and "min" win over "m".
var suffixes = []struct {
	text string
	unit Unit
}{
	{"min", Minute},
	{"mo", Month},
	{"m", Minute},
	{"h", Hour},
	{"d", Day},
	{"w", Week},
}

// Parse parses a frequency string such as "30m", "1h", "h", "1d", "1w" or
// "1mo". The multiplier defaults to 1 when omitted.
func Parse(s string) (Frequency, error) {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	if trimmed == "" {
		return Frequency{}, fmt.Errorf("empty frequency")
	}

	for _, suf := range suffixes {
		if !strings.HasSuffix(trimmed, suf.text) {
			continue
		}
		digits := strings.TrimSuffix(trimmed, suf.text)
		n := 1
		if digits != "" {
			var err error
			n, err = strconv.Atoi(digits)
			if err != nil || n < 1 {
				return Frequency{}, fmt.Errorf("invalid frequency multiplier %q in %q", digits, s)
			}
		}
		f := Frequency{N: n, Unit: suf.unit}
		if err := f.validate(s); err != nil {
			return Frequency{}, err
		}
		return f, nil
	}
	return Frequency{}, fmt.Errorf("unrecognised frequency %q (want e.g. 30m, 1h, 1d, 1w, 1mo)", s)
}

func (f Frequency) validate(orig string) error {
	switch f.Unit {
	case Day, Week, Month:
		if f.N != 1 {
			return fmt.Errorf("frequency %q: multi-%s buckets have no canonical origin, use 1%s", orig, f.Unit, f.Unit)
		}
	case Minute, Hour:
		if (24*60)%f.minutes() != 0 {
			return fmt.Errorf("frequency %q does not divide a day evenly", orig)
		}
	}
	return nil
}

func (f Frequency) minutes() int {
	if f.Unit == Hour {
		return f.N * 60
	}
	return f.N
}

// String returns a parseable representation such as "30m" or "1mo".
func (f Frequency) String() string {
	return fmt.Sprintf("%d%s", f.N, f.Unit)
}

// Duration returns the fixed width of one bucket. Only valid for sub-month
// units; month buckets vary in length and are stepped with Next.
func (f Frequency) Duration() time.Duration {
	switch f.Unit {
	case Minute:
		return time.Duration(f.N) * time.Minute
	case Hour:
		return time.Duration(f.N) * time.Hour
	case Day:
		return 24 * time.Hour
	case Week:
		return 7 * 24 * time.Hour
	}
	return 0
}

// BucketStart returns the start of the bucket containing t, aligned to the
// canonical origin for the unit: midnight for sub-day and day widths, Monday
// midnight for weeks, the first of the month for months.
func (f Frequency) BucketStart(t time.Time) time.Time {
	loc := t.Location()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)

	switch f.Unit {
	case Minute, Hour:
		width := f.Duration()
		offset := t.Sub(midnight)
		return midnight.Add(offset / width * width)
	case Day:
		return midnight
	case Week:
		// ISO week: Monday is day 0.
		back := (int(t.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -back)
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	}
	return t
}

// Next returns the start of the bucket following the one starting at start.
// Calendar-aware stepping keeps day and larger buckets aligned across DST
// transitions.
func (f Frequency) Next(start time.Time) time.Time {
	switch f.Unit {
	case Minute, Hour:
		return start.Add(f.Duration())
	case Day:
		return start.AddDate(0, 0, 1)
	case Week:
		return start.AddDate(0, 0, 7)
	case Month:
		return start.AddDate(0, 1, 0)
	}
	return start
}

// StartOfDay returns midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
