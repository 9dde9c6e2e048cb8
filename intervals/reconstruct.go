package intervals

import (
	"fmt"
	"sort"
	"time"

	"borrow_analytics/models"
)

const (
	AnomalyMultipleOpen   = "MultipleOpen"
	AnomalyOpenSuperseded = "OpenSuperseded"
	AnomalyOverlap        = "Overlap"
)

// ForItem turns the records of one item into ordered, non-overlapping
// intervals.
//
// At most one interval stays open: the latest open record, and only when no
// later checkout exists. Any other open record is closed at the next
// checkout and reported. A closed interval that runs past the next checkout
// is cut there and reported.
func ForItem(code string, records []models.BorrowRecord) ([]Interval, []models.Anomaly) {
	if len(records) == 0 {
		return nil, nil
	}
	recs := make([]models.BorrowRecord, len(records))
	copy(recs, records)
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CheckoutAt.Equal(recs[j].CheckoutAt) {
			return recs[i].CheckoutAt.Before(recs[j].CheckoutAt)
		}
		return recs[i].Fingerprint < recs[j].Fingerprint
	})

	latestOpen := -1
	for i, r := range recs {
		if !r.Complete() {
			latestOpen = i
		}
	}

	var (
		out       []Interval
		anomalies []models.Anomaly
	)
	report := func(kind string, at time.Time, format string, args ...any) {
		anomalies = append(anomalies, models.Anomaly{
			ItemCode: code,
			Kind:     kind,
			At:       at,
			Detail:   fmt.Sprintf(format, args...),
		})
	}
	for i, r := range recs {
		last := i == len(recs)-1
		var next time.Time
		if !last {
			next = recs[i+1].CheckoutAt
		}

		if !r.Complete() {
			if last {
				out = append(out, Open{ItemCode: code, From: r.CheckoutAt})
				continue
			}
			kind := AnomalyMultipleOpen
			if i == latestOpen {
				kind = AnomalyOpenSuperseded
			}
			report(kind, r.CheckoutAt, "open since %s, closed at next checkout %s",
				r.CheckoutAt.Format(time.RFC3339), next.Format(time.RFC3339))
			out = append(out, Closed{ItemCode: code, From: r.CheckoutAt, To: next})
			continue
		}

		end := *r.CheckinAt
		if !last && end.After(next) {
			report(AnomalyOverlap, r.CheckoutAt, "checked in %s after next checkout %s",
				end.Format(time.RFC3339), next.Format(time.RFC3339))
			end = next
		}
		out = append(out, Closed{ItemCode: code, From: r.CheckoutAt, To: end})
	}
	return out, anomalies
}

// Set holds the intervals of every item in a record set.
type Set struct {
	ByItem    map[string][]Interval
	Anomalies []models.Anomaly
}

// Reconstruct groups records by item and rebuilds each item's intervals.
func Reconstruct(records []models.BorrowRecord) Set {
	grouped := make(map[string][]models.BorrowRecord)
	for _, r := range records {
		grouped[r.ItemCode] = append(grouped[r.ItemCode], r)
	}
	set := Set{ByItem: make(map[string][]Interval, len(grouped))}
	for _, code := range sortedCodes(grouped) {
		ivs, an := ForItem(code, grouped[code])
		set.ByItem[code] = ivs
		set.Anomalies = append(set.Anomalies, an...)
	}
	return set
}

func (s Set) Items() []string {
	out := make([]string, 0, len(s.ByItem))
	for k := range s.ByItem {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedCodes(m map[string][]models.BorrowRecord) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
