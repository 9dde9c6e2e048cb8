package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"borrow_analytics/intervals"
	"borrow_analytics/models"
	"borrow_analytics/store"
)

type Mode string

const (
	Full          Mode = "full"
	CurrentPeriod Mode = "current"
)

func ParseMode(v string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "full", "all":
		return Full, nil
	case "current", "current_period", "realtime":
		return CurrentPeriod, nil
	}
	return "", fmt.Errorf("%w: mode %q", ErrInvalidParameter, v)
}

// Period is one declared current period, half-open.
type Period struct {
	Name  string
	Start time.Time
	End   time.Time
}

func (p Period) Range() models.TimeRange { return models.TimeRange{Start: p.Start, End: p.End} }

const DefaultInventoryCategory = "Inventory"

// ModeFilter narrows a snapshot to what one analysis mode may see.
type ModeFilter struct {
	Periods           []Period
	InventoryCategory string
}

// Apply returns the scope every analysis of one request runs against.
// CurrentPeriod keeps only checkouts inside a declared period and drops the
// inventory category; an open borrow that started before the period is
// therefore invisible there.
func (f ModeFilter) Apply(snap *store.Snapshot, mode Mode) *Scope {
	sc := &Scope{
		Mode:    mode,
		Version: snap.Version(),
		AsOf:    snap.TakenAt(),
		snap:    snap,
	}
	if mode == CurrentPeriod {
		inv := f.InventoryCategory
		if inv == "" {
			inv = DefaultInventoryCategory
		}
		sc.exclude = inv
		for _, p := range f.Periods {
			if r := p.Range(); r.Valid() {
				sc.periods = append(sc.periods, r)
			}
		}
		sc.scoped = true
	}
	return sc
}

// Scope is the mode-filtered view of one snapshot. It is the only input the
// analyses read.
type Scope struct {
	Mode    Mode
	Version uint64
	// AsOf is the refresh time; open intervals are measured up to it.
	AsOf time.Time

	snap    *store.Snapshot
	scoped  bool
	periods []models.TimeRange
	exclude string
}

func (s *Scope) keep(r models.BorrowRecord) bool {
	return !s.scoped || !strings.EqualFold(r.Category, s.exclude)
}

// ItemRecords returns the in-scope records of one item, by checkout time.
func (s *Scope) ItemRecords(code string) []models.BorrowRecord {
	if !s.scoped {
		return s.snap.ItemRecords(code, nil)
	}
	return s.gather(func(r *models.TimeRange) []models.BorrowRecord {
		return s.snap.ItemRecords(code, r)
	})
}

// Records returns in-scope records, optionally for a single category.
// The category matches case-insensitively.
func (s *Scope) Records(category string) []models.BorrowRecord {
	cats := []string{""}
	if category = strings.TrimSpace(category); category != "" {
		cats = s.categoriesLike(category)
	}
	fetch := func(r *models.TimeRange) []models.BorrowRecord {
		var out []models.BorrowRecord
		for _, c := range cats {
			out = append(out, s.snap.Query(store.Query{Category: c, Range: r})...)
		}
		if len(cats) > 1 {
			sortRecords(out)
		}
		return out
	}
	if !s.scoped {
		return fetch(nil)
	}
	return s.gather(fetch)
}

// CategoryName returns the stored spelling of a category, or name trimmed
// when no category matches.
func (s *Scope) CategoryName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if cats := s.categoriesLike(name); len(cats) > 0 {
		return cats[0]
	}
	return name
}

func (s *Scope) categoriesLike(name string) []string {
	var out []string
	for _, c := range s.snap.Categories() {
		if strings.EqualFold(c, name) {
			out = append(out, c)
		}
	}
	return out
}

// gather runs fetch once per period and merges the results, dropping
// duplicates where periods overlap.
func (s *Scope) gather(fetch func(*models.TimeRange) []models.BorrowRecord) []models.BorrowRecord {
	seen := make(map[string]struct{})
	var out []models.BorrowRecord
	for i := range s.periods {
		for _, r := range fetch(&s.periods[i]) {
			if _, dup := seen[r.Fingerprint]; dup || !s.keep(r) {
				continue
			}
			seen[r.Fingerprint] = struct{}{}
			out = append(out, r)
		}
	}
	if len(s.periods) > 1 {
		sortRecords(out)
	}
	return out
}

func sortRecords(recs []models.BorrowRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CheckoutAt.Equal(recs[j].CheckoutAt) {
			return recs[i].CheckoutAt.Before(recs[j].CheckoutAt)
		}
		return recs[i].Fingerprint < recs[j].Fingerprint
	})
}

// Intervals rebuilds the intervals of one item from its in-scope records.
func (s *Scope) Intervals(code string) ([]intervals.Interval, []models.Anomaly) {
	return intervals.ForItem(code, s.ItemRecords(code))
}

// Anomalies reconstructs every in-scope item and reports what was repaired.
func (s *Scope) Anomalies() []models.Anomaly {
	return intervals.Reconstruct(s.Records("")).Anomalies
}
