package normalize

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for raw timestamps, tried in order. The live feed writes
// US month-first dates; the historical export writes ISO-like dates.
var layouts = []string{
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// blank check-in values written by spreadsheet exports
var nullish = map[string]bool{"": true, "nat": true, "nan": true, "none": true, "null": true}

// IsBlank reports whether a cell means "no value".
func IsBlank(v string) bool { return nullish[strings.ToLower(strings.TrimSpace(v))] }

// ParseTimestamp parses v in loc. Values carrying an explicit offset keep it.
func ParseTimestamp(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.In(loc), nil
	}
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, v)
}

// parseOptional returns nil for blank cells.
func parseOptional(v string, loc *time.Location) (*time.Time, error) {
	if IsBlank(v) {
		return nil, nil
	}
	t, err := ParseTimestamp(v, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
