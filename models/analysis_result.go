// models/analysis_result.go
package models

import "time"

type ResultKind string

const (
	KindSingleItem ResultKind = "single_item"
	KindTopN       ResultKind = "topn"
	KindOccupancy  ResultKind = "occupancy"
)

type FailureCode string

const (
	FailItemNotFound     FailureCode = "ItemNotFound"
	FailInvalidParameter FailureCode = "InvalidParameter"
	FailCancelled        FailureCode = "Cancelled"
)

// AnalysisResult is what the presentation layer receives for every analysis.
// Exactly one of Timeline, TopN or Occupancy is set when OK is true.
type AnalysisResult struct {
	Kind            ResultKind  `json:"kind"`
	OK              bool        `json:"ok"`
	Code            FailureCode `json:"code,omitempty"`
	Reason          string      `json:"reason,omitempty"`
	Mode            string      `json:"mode"`
	SnapshotVersion uint64      `json:"snapshotVersion"`

	Timeline  *TimelineView  `json:"timeline,omitempty"`
	TopN      *TopNView      `json:"topN,omitempty"`
	Occupancy *OccupancyView `json:"occupancy,omitempty"`
}

type IntervalView struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"` // nil while still checked out
	Open  bool       `json:"open"`
	Hours float64    `json:"hours"`
}

// StatusPoint marks a status change: Out is 1 from At on, 0 once returned.
type StatusPoint struct {
	At  time.Time `json:"at"`
	Out int       `json:"out"`
}

type TimelineView struct {
	ItemCode     string         `json:"itemCode"`
	ItemName     string         `json:"itemName"`
	Category     string         `json:"category"`
	Unmapped     bool           `json:"unmapped"`
	AvailableNow bool           `json:"availableNow"`
	TotalBorrows int            `json:"totalBorrows"`
	Range        *TimeRange     `json:"range,omitempty"`
	Intervals    []IntervalView `json:"intervals"`
	Status       []StatusPoint  `json:"status"`
}

type RankEntry struct {
	Rank     int     `json:"rank"`
	ItemCode string  `json:"itemCode"`
	ItemName string  `json:"itemName"`
	Count    int     `json:"count"`
	Hours    float64 `json:"hours"`
	Value    float64 `json:"value"`
}

type BucketRanking struct {
	Start   time.Time   `json:"start"`
	End     time.Time   `json:"end"`
	Entries []RankEntry `json:"entries"`
}

type TopNView struct {
	Category    string          `json:"category,omitempty"`
	N           int             `json:"n"`
	Granularity string          `json:"granularity"`
	Metric      string          `json:"metric"`
	NameFilter  string          `json:"nameFilter,omitempty"`
	Range       *TimeRange      `json:"range,omitempty"`
	Buckets     []BucketRanking `json:"buckets"`
	Overall     []RankEntry     `json:"overall"`
}

type DayStatus struct {
	Date  time.Time `json:"date"`
	Out   bool      `json:"out"`
	Hours float64   `json:"hours"`
}

type OccupancyView struct {
	ItemCode      string      `json:"itemCode"`
	ItemName      string      `json:"itemName,omitempty"`
	Category      string      `json:"category,omitempty"`
	ItemFound     bool        `json:"itemFound"`
	Unmapped      bool        `json:"unmapped"`
	Range         TimeRange   `json:"range"`
	Days          float64     `json:"days"`
	Intervals     int         `json:"intervals"`
	OccupiedHours float64     `json:"occupiedHours"`
	OccupiedDays  int         `json:"occupiedDays"`
	Ratio         float64     `json:"ratio"`
	Daily         []DayStatus `json:"daily,omitempty"`
}
