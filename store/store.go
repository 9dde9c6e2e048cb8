package store

import (
	"sync"
	"sync/atomic"
	"time"

	"borrow_analytics/models"

	"github.com/google/btree"
)

const degree = 16

type tree = btree.BTreeG[*models.BorrowRecord]

func byCheckout(a, b *models.BorrowRecord) bool {
	if !a.CheckoutAt.Equal(b.CheckoutAt) {
		return a.CheckoutAt.Before(b.CheckoutAt)
	}
	return a.Fingerprint < b.Fingerprint
}

func newTree() *tree { return btree.NewG[*models.BorrowRecord](degree, byCheckout) }

// Store is the single-writer staging area for borrow records. Writers upsert
// into it; readers only ever see published Snapshots.
type Store struct {
	mu         sync.Mutex
	records    map[string]*models.BorrowRecord
	byTime     *tree
	byItem     map[string]*tree
	byCategory map[string]*tree

	// changed since the last Refresh
	dirty        map[string]struct{}
	touchedItems map[string]struct{}
	touchedCats  map[string]struct{}

	current atomic.Pointer[Snapshot]
}

func New() *Store {
	s := &Store{
		records:      make(map[string]*models.BorrowRecord),
		byTime:       newTree(),
		byItem:       make(map[string]*tree),
		byCategory:   make(map[string]*tree),
		dirty:        make(map[string]struct{}),
		touchedItems: make(map[string]struct{}),
		touchedCats:  make(map[string]struct{}),
	}
	s.current.Store(emptySnapshot())
	return s
}

// Current returns the last published snapshot. Never nil.
func (s *Store) Current() *Snapshot { return s.current.Load() }

// Len is the size of the staging set, including unpublished changes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Upsert applies the merge rule for rec against any stored record with the
// same fingerprint.
func (s *Store) Upsert(rec models.BorrowRecord) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(rec, true)
}

// UpsertAll upserts recs in order and tallies the outcomes.
func (s *Store) UpsertAll(recs []models.BorrowRecord) map[Outcome]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Outcome]int, 3)
	for _, r := range recs {
		out[s.upsertLocked(r, true)]++
	}
	return out
}

// Load seeds the staging set from persisted records without marking them
// for persistence again.
func (s *Store) Load(recs []models.BorrowRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.upsertLocked(r, false)
	}
}

func (s *Store) upsertLocked(rec models.BorrowRecord, markDirty bool) Outcome {
	old, ok := s.records[rec.Fingerprint]
	if ok {
		if compare(rec, *old) <= 0 {
			return Unchanged
		}
		s.unindex(old)
	}
	r := rec
	s.records[r.Fingerprint] = &r
	s.index(&r)
	if markDirty {
		s.dirty[r.Fingerprint] = struct{}{}
	}
	if ok {
		return Replaced
	}
	return Inserted
}

func (s *Store) index(r *models.BorrowRecord) {
	s.byTime.ReplaceOrInsert(r)
	insertInto(s.byItem, r.ItemCode, r)
	insertInto(s.byCategory, r.Category, r)
	s.touchedItems[r.ItemCode] = struct{}{}
	s.touchedCats[r.Category] = struct{}{}
}

func (s *Store) unindex(r *models.BorrowRecord) {
	s.byTime.Delete(r)
	deleteFrom(s.byItem, r.ItemCode, r)
	deleteFrom(s.byCategory, r.Category, r)
	s.touchedItems[r.ItemCode] = struct{}{}
	s.touchedCats[r.Category] = struct{}{}
}

func insertInto(m map[string]*tree, key string, r *models.BorrowRecord) {
	t, ok := m[key]
	if !ok {
		t = newTree()
		m[key] = t
	}
	t.ReplaceOrInsert(r)
}

func deleteFrom(m map[string]*tree, key string, r *models.BorrowRecord) {
	if t, ok := m[key]; ok {
		t.Delete(r)
		if t.Len() == 0 {
			delete(m, key)
		}
	}
}

// MarkDirty queues records for persistence again, e.g. after a failed save.
func (s *Store) MarkDirty(recs []models.BorrowRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		if _, ok := s.records[r.Fingerprint]; ok {
			s.dirty[r.Fingerprint] = struct{}{}
		}
	}
}

// Refresh publishes the staging set as a new immutable snapshot and returns
// it together with the records changed since the previous refresh. Readers
// holding the old snapshot are unaffected.
func (s *Store) Refresh(at time.Time) (*Snapshot, []models.BorrowRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current.Load()
	next := &Snapshot{
		version:    prev.version + 1,
		takenAt:    at,
		byTime:     s.byTime.Clone(),
		byItem:     make(map[string]*tree, len(s.byItem)),
		byCategory: make(map[string]*tree, len(s.byCategory)),
	}
	// only re-clone the per-key trees that changed
	refreshIndex(next.byItem, prev.byItem, s.byItem, s.touchedItems)
	refreshIndex(next.byCategory, prev.byCategory, s.byCategory, s.touchedCats)
	for _, r := range s.records {
		if !r.Complete() {
			next.open++
		}
	}

	dirty := make([]models.BorrowRecord, 0, len(s.dirty))
	for fp := range s.dirty {
		if r, ok := s.records[fp]; ok {
			dirty = append(dirty, *r)
		}
	}
	s.dirty = make(map[string]struct{})
	s.touchedItems = make(map[string]struct{})
	s.touchedCats = make(map[string]struct{})

	s.current.Store(next)
	return next, dirty
}

func refreshIndex(dst, prev, staging map[string]*tree, touched map[string]struct{}) {
	for k, t := range prev {
		if _, ok := touched[k]; !ok {
			dst[k] = t
		}
	}
	for k := range touched {
		if t, ok := staging[k]; ok && t.Len() > 0 {
			dst[k] = t.Clone()
		}
	}
}
