package analysis

import (
	"fmt"
	"testing"
	"time"

	"borrow_analytics/bucket"
	"borrow_analytics/models"
	"borrow_analytics/normalize"
	"borrow_analytics/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jan(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }

func borrow(code, name, category string, out time.Time, in *time.Time) models.BorrowRecord {
	return models.BorrowRecord{
		Fingerprint: normalize.Fingerprint(code, out),
		ItemCode:    code,
		ItemName:    name,
		Category:    category,
		CheckoutAt:  out,
		CheckinAt:   in,
		Source:      models.SourceHistorical,
	}
}

func ptr(t time.Time) *time.Time { return &t }

func snapshotOf(asOf time.Time, recs ...models.BorrowRecord) *store.Snapshot {
	s := store.New()
	for _, r := range recs {
		s.Upsert(r)
	}
	snap, _ := s.Refresh(asOf)
	return snap
}

func fullScope(asOf time.Time, recs ...models.BorrowRecord) *Scope {
	return ModeFilter{}.Apply(snapshotOf(asOf, recs...), Full)
}

var an = NewAnalyzer(time.UTC)

func TestOccupancyRatio(t *testing.T) {
	sc := fullScope(jan(20), borrow("CAM-001", "Camera 1", "Camera", jan(1), ptr(jan(4))))

	res := an.Occupancy(sc, "cam-001", models.TimeRange{Start: jan(1), End: jan(11)})
	require.True(t, res.OK, res.Reason)
	occ := res.Occupancy
	require.NotNil(t, occ)
	assert.InDelta(t, 0.3, occ.Ratio, 1e-9)
	assert.InDelta(t, 72.0, occ.OccupiedHours, 1e-9)
	assert.Equal(t, 3, occ.OccupiedDays)
	assert.Equal(t, 1, occ.Intervals)
	require.Len(t, occ.Daily, 10)
	assert.True(t, occ.Daily[2].Out)
	assert.False(t, occ.Daily[3].Out)
}

func TestOccupancyClipsOpenIntervalAtRefresh(t *testing.T) {
	sc := fullScope(jan(6), borrow("CAM-001", "Camera 1", "Camera", jan(1), nil))
	res := an.Occupancy(sc, "CAM-001", models.TimeRange{Start: jan(1), End: jan(11)})
	require.True(t, res.OK)
	assert.InDelta(t, 0.5, res.Occupancy.Ratio, 1e-9)
}

func TestOccupancyUnknownItemIsZero(t *testing.T) {
	sc := fullScope(jan(20))
	res := an.Occupancy(sc, "NOPE", models.TimeRange{Start: jan(1), End: jan(11)})
	require.True(t, res.OK)
	assert.False(t, res.Occupancy.ItemFound)
	assert.Zero(t, res.Occupancy.Ratio)
}

func TestOccupancyRejectsEmptyRange(t *testing.T) {
	sc := fullScope(jan(20))
	res := an.Occupancy(sc, "CAM-001", models.TimeRange{Start: jan(5), End: jan(5)})
	assert.False(t, res.OK)
	assert.Equal(t, models.FailInvalidParameter, res.Code)
}

func TestTopNTieBreaksByName(t *testing.T) {
	var recs []models.BorrowRecord
	add := func(code, name string, n int) {
		for i := 0; i < n; i++ {
			out := jan(6).Add(time.Duration(i) * time.Hour)
			recs = append(recs, borrow(code, name, "Camera", out, ptr(out.Add(30*time.Minute))))
		}
	}
	add("C-1", "C", 3)
	add("B-1", "B", 5)
	add("A-1", "A", 5)

	res := an.TopN(fullScope(jan(20), recs...), TopNQuery{N: 2, Granularity: bucket.Week})
	require.True(t, res.OK, res.Reason)
	require.Len(t, res.TopN.Buckets, 1)
	b := res.TopN.Buckets[0]
	assert.Equal(t, jan(6), b.Start)
	require.Len(t, b.Entries, 2)
	assert.Equal(t, "A", b.Entries[0].ItemName)
	assert.Equal(t, "B", b.Entries[1].ItemName)
	assert.Equal(t, 5, b.Entries[0].Count)
	assert.Equal(t, 1, b.Entries[0].Rank)
	assert.Len(t, res.TopN.Overall, 2)
}

func TestTopNReportsOnlyTouchedBuckets(t *testing.T) {
	sc := fullScope(jan(20),
		borrow("A-1", "A", "Camera", jan(1), ptr(jan(2))),
		borrow("A-1", "A", "Camera", time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), nil),
	)
	res := an.TopN(sc, TopNQuery{N: 5, Granularity: bucket.Month})
	require.True(t, res.OK)
	require.Len(t, res.TopN.Buckets, 2)
	assert.Equal(t, time.March, res.TopN.Buckets[1].Start.Month())
}

func TestTopNMetricsAndFilters(t *testing.T) {
	sc := fullScope(jan(20),
		borrow("CAM-1", "Camera 1", "Camera", jan(1), ptr(jan(1).Add(10*time.Hour))),
		borrow("CAM-2", "Camera 2", "Camera", jan(2), ptr(jan(2).Add(2*time.Hour))),
		borrow("CAM-2", "Camera 2", "Camera", jan(3), ptr(jan(3).Add(2*time.Hour))),
		borrow("TRI-1", "Tripod 1", "Support", jan(2), ptr(jan(2).Add(50*time.Hour))),
	)

	res := an.TopN(sc, TopNQuery{N: 1, Granularity: bucket.Year, Metric: MetricTotalHours, Category: "Camera"})
	require.True(t, res.OK)
	assert.Equal(t, "CAM-1", res.TopN.Overall[0].ItemCode)
	assert.InDelta(t, 10.0, res.TopN.Overall[0].Value, 1e-9)

	res = an.TopN(sc, TopNQuery{N: 3, Granularity: bucket.Year, NameFilter: "camera"})
	require.True(t, res.OK)
	assert.Len(t, res.TopN.Overall, 2)
	assert.Equal(t, "CAM-2", res.TopN.Overall[0].ItemCode)

	res = an.TopN(sc, TopNQuery{N: 3, NameFilter: "drone"})
	assert.False(t, res.OK)
	assert.Equal(t, models.FailItemNotFound, res.Code)
}

func TestTopNCategoryIgnoresCase(t *testing.T) {
	sc := fullScope(jan(20),
		borrow("CAM-1", "Camera 1", "Camera", jan(1), ptr(jan(2))),
		borrow("CAM-2", "Camera 2", "camera", jan(3), ptr(jan(4))),
		borrow("CAM-2", "Camera 2", "camera", jan(5), ptr(jan(6))),
		borrow("TRI-1", "Tripod 1", "Support", jan(2), ptr(jan(3))),
	)

	upper := an.TopN(sc, TopNQuery{N: 5, Granularity: bucket.Year, Category: "Camera"})
	lower := an.TopN(sc, TopNQuery{N: 5, Granularity: bucket.Year, Category: " CAMERA "})
	require.True(t, upper.OK, upper.Reason)
	assert.Equal(t, upper, lower)
	require.Len(t, upper.TopN.Overall, 2)
	assert.Equal(t, "CAM-2", upper.TopN.Overall[0].ItemCode)
	assert.Equal(t, 2, upper.TopN.Overall[0].Count)
	assert.Equal(t, "Camera", lower.TopN.Category)

	assert.Len(t, sc.Records("camera"), 3)
	assert.Empty(t, sc.Records("drone"))
}

func TestTopNRejectsBadN(t *testing.T) {
	for _, n := range []int{0, -1} {
		res := an.TopN(fullScope(jan(20)), TopNQuery{N: n, Granularity: bucket.Day})
		assert.False(t, res.OK)
		assert.Equal(t, models.FailInvalidParameter, res.Code, fmt.Sprint(n))
	}
}

func TestSingleItemTimeline(t *testing.T) {
	sc := fullScope(jan(20),
		borrow("CAM-001", "Camera 1", "Camera", jan(1), ptr(jan(4))),
		borrow("CAM-001", "Camera 1", "Camera", jan(10), nil),
	)
	res := an.SingleItem(sc, "CAM-001", nil)
	require.True(t, res.OK)
	tl := res.Timeline
	assert.False(t, tl.AvailableNow)
	assert.Equal(t, 2, tl.TotalBorrows)
	require.Len(t, tl.Intervals, 2)
	assert.True(t, tl.Intervals[1].Open)
	assert.Nil(t, tl.Intervals[1].End)
	assert.Len(t, tl.Status, 3)
	assert.Equal(t, jan(20), tl.Range.End)

	r := models.TimeRange{Start: jan(2), End: jan(5)}
	res = an.SingleItem(sc, "CAM-001", &r)
	require.True(t, res.OK)
	require.Len(t, res.Timeline.Intervals, 1)
	assert.Equal(t, jan(2), res.Timeline.Intervals[0].Start)
	assert.InDelta(t, 48.0, res.Timeline.Intervals[0].Hours, 1e-9)
}

func TestSingleItemNotFound(t *testing.T) {
	res := an.SingleItem(fullScope(jan(20)), "GHOST", nil)
	assert.False(t, res.OK)
	assert.Equal(t, models.FailItemNotFound, res.Code)
	assert.NotEmpty(t, res.Reason)
}

func TestModeScoping(t *testing.T) {
	snap := snapshotOf(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		borrow("CAM-001", "Camera 1", "Camera", time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), nil),
		borrow("XYZ-9", "Mystery 9", models.UnmappedCategory, jan(15), nil),
		borrow("INV-1", "Shelf 1", "Inventory", jan(16), nil),
	)
	filter := ModeFilter{Periods: []Period{{Name: "Spring 2025", Start: jan(1), End: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}}}
	r := models.TimeRange{Start: jan(1), End: jan(31)}

	full := filter.Apply(snap, Full)
	res := an.Occupancy(full, "CAM-001", r)
	require.True(t, res.OK)
	assert.InDelta(t, 1.0, res.Occupancy.Ratio, 1e-9)
	assert.True(t, an.SingleItem(full, "CAM-001", nil).OK)

	cur := filter.Apply(snap, CurrentPeriod)
	res = an.Occupancy(cur, "CAM-001", r)
	require.True(t, res.OK)
	assert.False(t, res.Occupancy.ItemFound)
	assert.Zero(t, res.Occupancy.Ratio)
	assert.False(t, an.SingleItem(cur, "CAM-001", nil).OK)

	assert.True(t, an.SingleItem(cur, "XYZ-9", nil).OK, "unmapped is not inventory")
	assert.False(t, an.SingleItem(cur, "INV-1", nil).OK, "inventory is excluded")
	assert.True(t, an.SingleItem(full, "INV-1", nil).OK)
}

func TestCurrentPeriodWithoutPeriodsIsEmpty(t *testing.T) {
	snap := snapshotOf(jan(20), borrow("CAM-001", "Camera 1", "Camera", jan(1), nil))
	sc := ModeFilter{}.Apply(snap, CurrentPeriod)
	assert.Empty(t, sc.Records(""))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Full, m)
	m, err = ParseMode("realtime")
	require.NoError(t, err)
	assert.Equal(t, CurrentPeriod, m)
	_, err = ParseMode("weekly")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
