package store

import (
	"testing"
	"time"

	"borrow_analytics/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var t0 = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

func rec(fp, code string, out time.Time, in *time.Time, src models.Source) models.BorrowRecord {
	return models.BorrowRecord{
		Fingerprint: fp,
		ItemCode:    code,
		ItemName:    code + " 1",
		Category:    "Camera",
		CheckoutAt:  out,
		CheckinAt:   in,
		Source:      src,
	}
}

func at(d time.Duration) *time.Time { t := t0.Add(d); return &t }

func TestUpsertSameEventFromBothSourcesStoresOne(t *testing.T) {
	s := New()
	assert.Equal(t, Inserted, s.Upsert(rec("fp1", "CAM-001", t0, at(time.Hour), models.SourceHistorical)))
	assert.Equal(t, Unchanged, s.Upsert(rec("fp1", "CAM-001", t0, at(time.Hour), models.SourceHistorical)))
	s.Upsert(rec("fp1", "CAM-001", t0, at(time.Hour), models.SourceRealtime))

	snap, _ := s.Refresh(t0)
	assert.Equal(t, 1, snap.Len())
}

func TestCompletenessMonotonic(t *testing.T) {
	s := New()
	s.Upsert(rec("fp1", "CAM-001", t0, nil, models.SourceRealtime))
	assert.Equal(t, Replaced, s.Upsert(rec("fp1", "CAM-001", t0, at(2*time.Hour), models.SourceHistorical)))
	assert.Equal(t, Unchanged, s.Upsert(rec("fp1", "CAM-001", t0, nil, models.SourceRealtime)))

	snap, _ := s.Refresh(t0)
	got := snap.ItemRecords("CAM-001", nil)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].CheckinAt)
	assert.Equal(t, t0.Add(2*time.Hour), *got[0].CheckinAt)
	assert.Equal(t, 0, snap.OpenRecords())
}

func TestMergeIsOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gen := func(label string) models.BorrowRecord {
			var in *time.Time
			if rapid.Bool().Draw(t, label+"complete") {
				v := t0.Add(time.Duration(rapid.IntRange(60, 600).Draw(t, label+"in")) * time.Minute)
				in = &v
			}
			return models.BorrowRecord{
				Fingerprint: "fp",
				ItemCode:    "A",
				ItemName:    rapid.SampledFrom([]string{"", "Cam 1", "Cam 2"}).Draw(t, label+"name"),
				Category:    rapid.SampledFrom([]string{models.UnmappedCategory, "Camera"}).Draw(t, label+"cat"),
				CheckoutAt:  t0.Add(time.Duration(rapid.IntRange(0, 59).Draw(t, label+"sec")) * time.Second),
				CheckinAt:   in,
				Source:      rapid.SampledFrom([]models.Source{models.SourceHistorical, models.SourceRealtime}).Draw(t, label+"src"),
			}
		}
		a, b := gen("a"), gen("b")
		ab, ba := Merge(a, b), Merge(b, a)
		if compare(ab, ba) != 0 {
			t.Fatalf("merge depends on order: %+v vs %+v", ab, ba)
		}
		if (a.Complete() || b.Complete()) && !ab.Complete() {
			t.Fatalf("complete record lost")
		}
	})
}

func TestSnapshotIsolatedFromLaterWrites(t *testing.T) {
	s := New()
	s.Upsert(rec("fp1", "CAM-001", t0, nil, models.SourceRealtime))
	first, dirty := s.Refresh(t0)
	assert.Len(t, dirty, 1)
	assert.Equal(t, uint64(1), first.Version())

	s.Upsert(rec("fp1", "CAM-001", t0, at(time.Hour), models.SourceRealtime))
	s.Upsert(rec("fp2", "CAM-002", t0.Add(time.Hour), nil, models.SourceRealtime))

	assert.Same(t, first, s.Current())
	assert.Nil(t, first.ItemRecords("CAM-001", nil)[0].CheckinAt)
	assert.False(t, first.HasItem("CAM-002"))

	second, dirty := s.Refresh(t0.Add(time.Minute))
	assert.Len(t, dirty, 2)
	assert.Equal(t, uint64(2), second.Version())
	assert.NotNil(t, second.ItemRecords("CAM-001", nil)[0].CheckinAt)
	assert.Equal(t, []string{"CAM-001", "CAM-002"}, second.Items())
	assert.Nil(t, first.ItemRecords("CAM-001", nil)[0].CheckinAt)
}

func TestQueryByRangeIsHalfOpen(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		s.Upsert(rec(string(rune('a'+i)), "CAM-001", t0.Add(time.Duration(i)*24*time.Hour), nil, models.SourceHistorical))
	}
	r := models.TimeRange{Start: t0.Add(2 * 24 * time.Hour), End: t0.Add(5 * 24 * time.Hour)}
	snap, _ := s.Refresh(t0)

	got := snap.ItemRecords("CAM-001", &r)
	require.Len(t, got, 3)
	assert.Equal(t, r.Start, got[0].CheckoutAt)
	assert.True(t, got[2].CheckoutAt.Before(r.End))
	assert.Len(t, snap.Query(Query{Range: &r}), 3)
}

func TestQueryFilters(t *testing.T) {
	s := New()
	s.Upsert(rec("a", "CAM-001", t0, nil, models.SourceHistorical))
	inv := rec("b", "INV-001", t0.Add(time.Hour), nil, models.SourceRealtime)
	inv.Category = "Inventory"
	s.Upsert(inv)
	snap, _ := s.Refresh(t0)

	assert.Len(t, snap.Query(Query{}), 2)
	assert.Len(t, snap.Query(Query{Category: "Inventory"}), 1)
	assert.Len(t, snap.Query(Query{Source: models.SourceHistorical}), 1)
	assert.Len(t, snap.Query(Query{ItemCode: "CAM-001", Category: "Inventory"}), 0)
	assert.Nil(t, snap.Query(Query{ItemCode: "NOPE"}))
	assert.Equal(t, []string{"Camera", "Inventory"}, snap.Categories())
}

func TestCategoryChangeMovesIndex(t *testing.T) {
	s := New()
	old := rec("a", "CAM-001", t0, nil, models.SourceHistorical)
	old.Category = models.UnmappedCategory
	s.Upsert(old)
	s.Refresh(t0)

	s.Upsert(rec("a", "CAM-001", t0, at(time.Hour), models.SourceHistorical))
	snap, _ := s.Refresh(t0)
	assert.Equal(t, []string{"Camera"}, snap.Categories())
}

func TestLoadDoesNotMarkDirty(t *testing.T) {
	s := New()
	s.Load([]models.BorrowRecord{rec("a", "CAM-001", t0, nil, models.SourceHistorical)})
	snap, dirty := s.Refresh(t0)
	assert.Empty(t, dirty)
	assert.Equal(t, 1, snap.Len())

	s.MarkDirty(snap.Records())
	_, dirty = s.Refresh(t0)
	assert.Len(t, dirty, 1)
}
