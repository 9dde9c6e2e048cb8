package models

import "time"

// TimeRange is the half-open range [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r TimeRange) Valid() bool { return r.End.After(r.Start) }

func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

func (r TimeRange) Duration() time.Duration { return r.End.Sub(r.Start) }

// Days is the length of the range in (possibly fractional) days.
func (r TimeRange) Days() float64 { return r.Duration().Hours() / 24 }

// Intersect returns the overlap of r with [start, end), if any.
func (r TimeRange) Intersect(start, end time.Time) (TimeRange, bool) {
	if start.Before(r.Start) {
		start = r.Start
	}
	if end.After(r.End) {
		end = r.End
	}
	if !end.After(start) {
		return TimeRange{}, false
	}
	return TimeRange{Start: start, End: end}, true
}
