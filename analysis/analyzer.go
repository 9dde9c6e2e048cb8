package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"borrow_analytics/bucket"
	"borrow_analytics/intervals"
	"borrow_analytics/models"
	"borrow_analytics/normalize"
)

// maxDailyPoints bounds the per-day occupancy series (about ten years).
const maxDailyPoints = 3700

// Analyzer computes the three analysis views over a Scope. It holds no
// state besides the calendar location used for bucketing.
type Analyzer struct {
	Location *time.Location
}

func NewAnalyzer(loc *time.Location) *Analyzer {
	if loc == nil {
		loc = time.Local
	}
	return &Analyzer{Location: loc}
}

// itemInfo returns name and category from the item's latest record.
func itemInfo(recs []models.BorrowRecord) (name, category string) {
	if len(recs) == 0 {
		return "", ""
	}
	last := recs[len(recs)-1]
	return last.ItemName, last.Category
}

// SingleItem returns the item's ordered intervals, clipped to r when given.
func (a *Analyzer) SingleItem(sc *Scope, code string, r *models.TimeRange) models.AnalysisResult {
	code = normalize.NormalizeCode(code)
	if code == "" {
		return Failed(models.KindSingleItem, sc.Mode, sc.Version, fmt.Errorf("%w: empty item code", ErrInvalidParameter))
	}
	if r != nil && !r.Valid() {
		return Failed(models.KindSingleItem, sc.Mode, sc.Version, fmt.Errorf("%w: time range end must be after start", ErrInvalidParameter))
	}
	recs := sc.ItemRecords(code)
	if len(recs) == 0 {
		return Failed(models.KindSingleItem, sc.Mode, sc.Version, fmt.Errorf("%w: %s has no records in %s mode", ErrItemNotFound, code, sc.Mode))
	}
	ivs, _ := intervals.ForItem(code, recs)
	name, category := itemInfo(recs)

	view := &models.TimelineView{
		ItemCode:     code,
		ItemName:     name,
		Category:     category,
		Unmapped:     category == models.UnmappedCategory,
		AvailableNow: true,
		Intervals:    []models.IntervalView{},
		Status:       []models.StatusPoint{},
	}
	for _, iv := range ivs {
		if iv.IsOpen() {
			view.AvailableNow = false
		}
	}

	shown := r
	if shown == nil {
		whole := models.TimeRange{Start: ivs[0].Start(), End: ivs[0].EndAt(sc.AsOf)}
		for _, iv := range ivs {
			if end := iv.EndAt(sc.AsOf); end.After(whole.End) {
				whole.End = end
			}
		}
		shown = &whole
	}
	view.Range = shown

	for _, iv := range ivs {
		var (
			start = iv.Start()
			end   = iv.EndAt(sc.AsOf)
		)
		if r != nil {
			clip, ok := intervals.Clip(iv, *r, sc.AsOf)
			if !ok {
				continue
			}
			start, end = clip.Start, clip.End
		}
		iview := models.IntervalView{Start: start, Open: iv.IsOpen(), Hours: end.Sub(start).Hours()}
		if !iv.IsOpen() || (r != nil && end.Before(iv.EndAt(sc.AsOf))) {
			e := end
			iview.End = &e
		}
		view.Intervals = append(view.Intervals, iview)
		view.Status = append(view.Status, models.StatusPoint{At: start, Out: 1})
		if iview.End != nil {
			view.Status = append(view.Status, models.StatusPoint{At: end, Out: 0})
		}
	}
	view.TotalBorrows = len(view.Intervals)

	res := success(models.KindSingleItem, sc)
	res.Timeline = view
	return res
}

type Metric string

const (
	MetricCount      Metric = "count"
	MetricTotalHours Metric = "total_hours"
	MetricAvgHours   Metric = "avg_hours"
)

func ParseMetric(v string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(v, " ", "_"))) {
	case "", "count":
		return MetricCount, nil
	case "total_hours", "total_duration", "total":
		return MetricTotalHours, nil
	case "avg_hours", "avg_duration", "average", "avg":
		return MetricAvgHours, nil
	}
	return "", fmt.Errorf("%w: metric %q", ErrInvalidParameter, v)
}

// TopNQuery parameterizes a Top-N ranking. Zero Category and NameFilter
// match everything; Range, when set, limits interval start times.
type TopNQuery struct {
	Category    string
	N           int
	Granularity bucket.Granularity
	NameFilter  string
	Metric      Metric
	Range       *models.TimeRange
}

type tally struct {
	code  string
	name  string
	count int
	dur   time.Duration
}

func (t *tally) value(m Metric) float64 {
	switch m {
	case MetricTotalHours:
		return t.dur.Hours()
	case MetricAvgHours:
		if t.count == 0 {
			return 0
		}
		return t.dur.Hours() / float64(t.count)
	}
	return float64(t.count)
}

// TopN ranks items per calendar bucket by the chosen metric. Every bucket
// touched by an in-scope interval start is reported; ties are broken by
// item name, then code.
func (a *Analyzer) TopN(sc *Scope, q TopNQuery) models.AnalysisResult {
	fail := func(err error) models.AnalysisResult {
		return Failed(models.KindTopN, sc.Mode, sc.Version, err)
	}
	if q.N <= 0 {
		return fail(fmt.Errorf("%w: n must be positive, got %d", ErrInvalidParameter, q.N))
	}
	if q.Granularity == "" {
		q.Granularity = bucket.Month
	}
	if _, err := bucket.ParseGranularity(string(q.Granularity)); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrInvalidParameter, err))
	}
	if q.Metric == "" {
		q.Metric = MetricCount
	}
	if _, err := ParseMetric(string(q.Metric)); err != nil {
		return fail(err)
	}
	if q.Range != nil && !q.Range.Valid() {
		return fail(fmt.Errorf("%w: time range end must be after start", ErrInvalidParameter))
	}

	q.Category = sc.CategoryName(q.Category)
	grouped := make(map[string][]models.BorrowRecord)
	for _, r := range sc.Records(q.Category) {
		if !matchesName(r, q.NameFilter) {
			continue
		}
		grouped[r.ItemCode] = append(grouped[r.ItemCode], r)
	}

	perBucket := make(map[int64]map[string]*tally)
	bounds := make(map[int64]bucket.Bucket)
	overall := make(map[string]*tally)
	add := func(m map[string]*tally, code, name string, d time.Duration) {
		t, ok := m[code]
		if !ok {
			t = &tally{code: code, name: name}
			m[code] = t
		}
		t.count++
		t.dur += d
	}
	for code, recs := range grouped {
		name, _ := itemInfo(recs)
		ivs, _ := intervals.ForItem(code, recs)
		for _, iv := range ivs {
			start := iv.Start()
			if q.Range != nil && !q.Range.Contains(start) {
				continue
			}
			b := bucket.Of(start.In(a.Location), q.Granularity)
			key := b.Start.UnixNano()
			if _, ok := perBucket[key]; !ok {
				perBucket[key] = make(map[string]*tally)
				bounds[key] = b
			}
			d := intervals.Duration(iv, sc.AsOf)
			add(perBucket[key], code, name, d)
			add(overall, code, name, d)
		}
	}
	if len(overall) == 0 {
		what := "no borrow events"
		if q.Category != "" {
			what += " in category " + q.Category
		}
		if q.NameFilter != "" {
			what += " matching " + q.NameFilter
		}
		return fail(fmt.Errorf("%w: %s (%s mode)", ErrItemNotFound, what, sc.Mode))
	}

	keys := make([]int64, 0, len(perBucket))
	for k := range perBucket {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	view := &models.TopNView{
		Category:    q.Category,
		N:           q.N,
		Granularity: string(q.Granularity),
		Metric:      string(q.Metric),
		NameFilter:  q.NameFilter,
		Range:       q.Range,
		Buckets:     make([]models.BucketRanking, 0, len(keys)),
		Overall:     rank(overall, q.Metric, q.N),
	}
	for _, k := range keys {
		b := bounds[k]
		view.Buckets = append(view.Buckets, models.BucketRanking{
			Start:   b.Start,
			End:     b.End,
			Entries: rank(perBucket[k], q.Metric, q.N),
		})
	}
	res := success(models.KindTopN, sc)
	res.TopN = view
	return res
}

func matchesName(r models.BorrowRecord, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	f := strings.ToLower(filter)
	return strings.EqualFold(r.BaseName(), filter) || strings.Contains(strings.ToLower(r.ItemName), f)
}

func rank(m map[string]*tally, metric Metric, n int) []models.RankEntry {
	ts := make([]*tally, 0, len(m))
	for _, t := range m {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool {
		vi, vj := ts[i].value(metric), ts[j].value(metric)
		if vi != vj {
			return vi > vj
		}
		if ts[i].name != ts[j].name {
			return ts[i].name < ts[j].name
		}
		return ts[i].code < ts[j].code
	})
	if len(ts) > n {
		ts = ts[:n]
	}
	out := make([]models.RankEntry, len(ts))
	for i, t := range ts {
		out[i] = models.RankEntry{
			Rank:     i + 1,
			ItemCode: t.code,
			ItemName: t.name,
			Count:    t.count,
			Hours:    t.dur.Hours(),
			Value:    t.value(metric),
		}
	}
	return out
}

// Occupancy reports what fraction of r the item spent checked out. An item
// without intervals in r has ratio 0; that is not a failure.
func (a *Analyzer) Occupancy(sc *Scope, code string, r models.TimeRange) models.AnalysisResult {
	fail := func(err error) models.AnalysisResult {
		return Failed(models.KindOccupancy, sc.Mode, sc.Version, err)
	}
	if !r.Valid() {
		return fail(fmt.Errorf("%w: time range end must be after start", ErrInvalidParameter))
	}
	code = normalize.NormalizeCode(code)
	if code == "" {
		return fail(fmt.Errorf("%w: empty item code", ErrInvalidParameter))
	}

	recs := sc.ItemRecords(code)
	name, category := itemInfo(recs)
	view := &models.OccupancyView{
		ItemCode:  code,
		ItemName:  name,
		Category:  category,
		ItemFound: len(recs) > 0,
		Unmapped:  category == models.UnmappedCategory,
		Range:     r,
		Days:      r.Days(),
	}

	var clipped []models.TimeRange
	var occupied time.Duration
	ivs, _ := intervals.ForItem(code, recs)
	for _, iv := range ivs {
		c, ok := intervals.Clip(iv, r, sc.AsOf)
		if !ok {
			continue
		}
		clipped = append(clipped, c)
		occupied += c.Duration()
	}
	view.Intervals = len(clipped)
	view.OccupiedHours = occupied.Hours()
	view.Ratio = clamp01(occupied.Hours() / r.Duration().Hours())

	for i, b := range bucket.Span(r.Start.In(a.Location), r.End.In(a.Location), bucket.Day) {
		if i >= maxDailyPoints {
			break
		}
		dayRange, _ := r.Intersect(b.Start, b.End)
		var busy time.Duration
		for _, c := range clipped {
			if ov, ok := dayRange.Intersect(c.Start, c.End); ok {
				busy += ov.Duration()
			}
		}
		view.Daily = append(view.Daily, models.DayStatus{Date: b.Start, Out: busy > 0, Hours: busy.Hours()})
		if busy > 0 {
			view.OccupiedDays++
		}
	}

	res := success(models.KindOccupancy, sc)
	res.Occupancy = view
	return res
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
