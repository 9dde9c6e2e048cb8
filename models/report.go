package models

import "time"

type RejectedRow struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// IngestReport summarizes one ingest call. Rejected rows never abort a batch.
type IngestReport struct {
	BatchID       string         `json:"batchId"`
	Source        Source         `json:"source"`
	Received      int            `json:"received"`
	Accepted      int            `json:"accepted"`
	Inserted      int            `json:"inserted"`
	Replaced      int            `json:"replaced"`
	Unchanged     int            `json:"unchanged"`
	Rejected      int            `json:"rejected"`
	Reasons       map[string]int `json:"reasons"`
	Rejections    []RejectedRow  `json:"rejections,omitempty"`
	UnmappedCodes []string       `json:"unmappedCodes,omitempty"`
}

type SnapshotInfo struct {
	Version     uint64    `json:"version"`
	Records     int       `json:"records"`
	Items       int       `json:"items"`
	OpenRecords int       `json:"openRecords"`
	RefreshedAt time.Time `json:"refreshedAt"`
	Persisted   int       `json:"persisted"`
}

type Anomaly struct {
	ItemCode string    `json:"itemCode"`
	Kind     string    `json:"kind"`
	At       time.Time `json:"at"`
	Detail   string    `json:"detail"`
}

type ItemMatch struct {
	ItemCode string `json:"itemCode"`
	ItemName string `json:"itemName"`
	Category string `json:"category"`
	Borrows  int    `json:"borrows"`
}

type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Stats struct {
	Mode          string         `json:"mode"`
	Version       uint64         `json:"version"`
	TotalRecords  int            `json:"totalRecords"`
	OpenRecords   int            `json:"openRecords"`
	Items         int            `json:"items"`
	BySource      map[string]int `json:"bySource"`
	TopCategories []NameCount    `json:"topCategories"`
	TopItems      []NameCount    `json:"topItems"`
	FirstCheckout *time.Time     `json:"firstCheckout,omitempty"`
	LastCheckout  *time.Time     `json:"lastCheckout,omitempty"`
}
