package store

import (
	"sort"
	"time"

	"borrow_analytics/models"
)

// Snapshot is an immutable view of the record set as of one refresh.
type Snapshot struct {
	version    uint64
	takenAt    time.Time
	byTime     *tree
	byItem     map[string]*tree
	byCategory map[string]*tree
	open       int
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		byTime:     newTree(),
		byItem:     map[string]*tree{},
		byCategory: map[string]*tree{},
	}
}

func (s *Snapshot) Version() uint64    { return s.version }
func (s *Snapshot) TakenAt() time.Time { return s.takenAt }
func (s *Snapshot) Len() int           { return s.byTime.Len() }
func (s *Snapshot) OpenRecords() int   { return s.open }

func (s *Snapshot) HasItem(code string) bool {
	_, ok := s.byItem[code]
	return ok
}

// Items returns every item code in the snapshot, sorted.
func (s *Snapshot) Items() []string { return sortedKeys(s.byItem) }

func (s *Snapshot) Categories() []string { return sortedKeys(s.byCategory) }

func sortedKeys(m map[string]*tree) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Records returns all records ordered by checkout time.
func (s *Snapshot) Records() []models.BorrowRecord {
	return collect(s.byTime, nil, nil)
}

// ItemRecords returns the records of one item, optionally limited to
// checkouts inside r, ordered by checkout time.
func (s *Snapshot) ItemRecords(code string, r *models.TimeRange) []models.BorrowRecord {
	t, ok := s.byItem[code]
	if !ok {
		return nil
	}
	return collect(t, r, nil)
}

// Query filters records. Zero fields match everything. Range applies to
// checkout time, half-open.
type Query struct {
	ItemCode string
	Category string
	Range    *models.TimeRange
	Source   models.Source
}

func (s *Snapshot) Query(q Query) []models.BorrowRecord {
	var (
		t    = s.byTime
		keep func(*models.BorrowRecord) bool
	)
	switch {
	case q.ItemCode != "":
		var ok bool
		if t, ok = s.byItem[q.ItemCode]; !ok {
			return nil
		}
	case q.Category != "":
		var ok bool
		if t, ok = s.byCategory[q.Category]; !ok {
			return nil
		}
	}
	if q.Category != "" || q.Source != "" {
		keep = func(r *models.BorrowRecord) bool {
			return (q.Category == "" || r.Category == q.Category) &&
				(q.Source == "" || r.Source == q.Source)
		}
	}
	return collect(t, q.Range, keep)
}

func collect(t *tree, r *models.TimeRange, keep func(*models.BorrowRecord) bool) []models.BorrowRecord {
	var out []models.BorrowRecord
	visit := func(rec *models.BorrowRecord) bool {
		if keep == nil || keep(rec) {
			out = append(out, *rec)
		}
		return true
	}
	if r == nil {
		t.Ascend(visit)
		return out
	}
	if !r.Valid() {
		return nil
	}
	lo := &models.BorrowRecord{CheckoutAt: r.Start}
	hi := &models.BorrowRecord{CheckoutAt: r.End}
	t.AscendRange(lo, hi, visit)
	return out
}
