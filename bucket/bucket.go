package bucket

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

var ErrUnknownGranularity = errors.New("unknown granularity")

func ParseGranularity(v string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "d", "day", "daily":
		return Day, nil
	case "w", "week", "weekly":
		return Week, nil
	case "m", "month", "monthly":
		return Month, nil
	case "y", "year", "yearly", "annual":
		return Year, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, v)
}

// Bucket is the half-open calendar range [Start, End).
type Bucket struct {
	Granularity Granularity
	Start       time.Time
	End         time.Time
}

// Contains is start-inclusive and end-exclusive: t == End belongs to the
// next bucket.
func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

func (b Bucket) Next() Bucket { return Of(b.End, b.Granularity) }

// Of returns the bucket holding t. Boundaries are local calendar midnights in
// t's location; weeks start on Monday.
func Of(t time.Time, g Granularity) Bucket {
	y, m, d := t.Date()
	loc := t.Location()
	var start, end time.Time
	switch g {
	case Week:
		back := (int(t.Weekday()) + 6) % 7
		start = time.Date(y, m, d-back, 0, 0, 0, 0, loc)
		end = time.Date(y, m, d-back+7, 0, 0, 0, 0, loc)
	case Month:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	case Year:
		start = time.Date(y, 1, 1, 0, 0, 0, 0, loc)
		end = time.Date(y+1, 1, 1, 0, 0, 0, 0, loc)
	default:
		g = Day
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		end = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	}
	return Bucket{Granularity: g, Start: start, End: end}
}

// Span lists the consecutive buckets covering [from, to).
func Span(from, to time.Time, g Granularity) []Bucket {
	if !to.After(from) {
		return nil
	}
	var out []Bucket
	for b := Of(from, g); b.Start.Before(to); b = b.Next() {
		out = append(out, b)
	}
	return out
}
