package store

import (
	"strings"
	"time"

	"borrow_analytics/models"
)

// Outcome of an upsert.
type Outcome int

const (
	Inserted Outcome = iota
	Replaced
	Unchanged
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	default:
		return "unchanged"
	}
}

// Merge picks the surviving version of two records sharing a fingerprint.
// A record with a check-in always beats one without. The remaining rules only
// make the choice independent of arrival order; the source never decides.
func Merge(existing, incoming models.BorrowRecord) models.BorrowRecord {
	if compare(incoming, existing) > 0 {
		return incoming
	}
	return existing
}

// compare returns >0 when a should win over b, <0 when b wins, 0 when the
// two are interchangeable.
func compare(a, b models.BorrowRecord) int {
	if a.Complete() != b.Complete() {
		if a.Complete() {
			return 1
		}
		return -1
	}
	if a.Complete() {
		// the later check-in is the more recent observation
		if c := cmpTime(*a.CheckinAt, *b.CheckinAt); c != 0 {
			return c
		}
	}
	if c := cmpTime(b.CheckoutAt, a.CheckoutAt); c != 0 {
		return c
	}
	if c := preferSet(a.ItemName != "", b.ItemName != ""); c != 0 {
		return c
	}
	if c := preferSet(a.Category != models.UnmappedCategory, b.Category != models.UnmappedCategory); c != 0 {
		return c
	}
	for _, p := range [][2]string{
		{a.ItemName, b.ItemName},
		{a.Category, b.Category},
		{string(a.Source), string(b.Source)},
		{a.Sheet, b.Sheet},
	} {
		if c := strings.Compare(p[1], p[0]); c != 0 {
			return c
		}
	}
	return 0
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.After(b):
		return 1
	case a.Before(b):
		return -1
	}
	return 0
}

func preferSet(a, b bool) int {
	switch {
	case a && !b:
		return 1
	case b && !a:
		return -1
	}
	return 0
}
