package analysis

import (
	"sort"
	"strings"
	"time"

	"borrow_analytics/models"
)

// SearchItems finds in-scope items whose code or name contains q, case
// insensitive. Prefix matches come first, then by code. An empty q lists
// every item.
func SearchItems(sc *Scope, q string, limit int) []models.ItemMatch {
	q = strings.ToLower(strings.TrimSpace(q))
	type hit struct {
		models.ItemMatch
		prefix bool
	}
	byCode := make(map[string]*hit)
	for _, r := range sc.Records("") {
		h, ok := byCode[r.ItemCode]
		if !ok {
			h = &hit{ItemMatch: models.ItemMatch{ItemCode: r.ItemCode}}
			byCode[r.ItemCode] = h
		}
		// records arrive by checkout time: the last one names the item
		h.ItemName, h.Category = r.ItemName, r.Category
		h.Borrows++
	}

	var hits []*hit
	for _, h := range byCode {
		code, name := strings.ToLower(h.ItemCode), strings.ToLower(h.ItemName)
		if q != "" && !strings.Contains(code, q) && !strings.Contains(name, q) {
			continue
		}
		h.prefix = q != "" && (strings.HasPrefix(code, q) || strings.HasPrefix(name, q))
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].prefix != hits[j].prefix {
			return hits[i].prefix
		}
		return hits[i].ItemCode < hits[j].ItemCode
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]models.ItemMatch, len(hits))
	for i, h := range hits {
		out[i] = h.ItemMatch
	}
	return out
}

const statsTop = 10

// Summarize computes headline statistics for a scope.
func Summarize(sc *Scope) models.Stats {
	st := models.Stats{
		Mode:          string(sc.Mode),
		Version:       sc.Version,
		BySource:      map[string]int{},
		TopCategories: []models.NameCount{},
		TopItems:      []models.NameCount{},
	}
	cats := map[string]int{}
	items := map[string]int{}
	var first, last time.Time
	for _, r := range sc.Records("") {
		st.TotalRecords++
		if !r.Complete() {
			st.OpenRecords++
		}
		st.BySource[string(r.Source)]++
		cats[r.Category]++
		items[r.ItemCode]++
		if first.IsZero() || r.CheckoutAt.Before(first) {
			first = r.CheckoutAt
		}
		if r.CheckoutAt.After(last) {
			last = r.CheckoutAt
		}
	}
	st.Items = len(items)
	st.TopCategories = topCounts(cats, statsTop)
	st.TopItems = topCounts(items, statsTop)
	if st.TotalRecords > 0 {
		st.FirstCheckout, st.LastCheckout = &first, &last
	}
	return st
}

func topCounts(m map[string]int, n int) []models.NameCount {
	out := make([]models.NameCount, 0, len(m))
	for k, v := range m {
		out = append(out, models.NameCount{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
