// models/borrow_record.go
package models

import (
	"regexp"
	"strings"
	"time"
)

const RecordTable = "borrow_records"

// UnmappedCategory tags items whose code has no entry in the mapping table.
const UnmappedCategory = "Unmapped"

type Source string

const (
	SourceHistorical Source = "historical"
	SourceRealtime   Source = "realtime"
)

func (s Source) Valid() bool { return s == SourceHistorical || s == SourceRealtime }

func ParseSource(v string) (Source, bool) {
	s := Source(strings.ToLower(strings.TrimSpace(v)))
	return s, s.Valid()
}

// BorrowRecord is one normalized check-out with its optional check-in.
// Records are never mutated once stored; a more complete version with the
// same fingerprint replaces the whole value.
type BorrowRecord struct {
	Fingerprint string     `gorm:"size:32;primaryKey" json:"fingerprint"`
	ItemCode    string     `gorm:"size:120;not null;index:idx_borrow_item_checkout,priority:1" json:"itemCode"`
	ItemName    string     `gorm:"size:200" json:"itemName"`
	Category    string     `gorm:"size:120;index" json:"category"`
	CheckoutAt  time.Time  `gorm:"not null;index:idx_borrow_item_checkout,priority:2" json:"checkoutAt"`
	CheckinAt   *time.Time `json:"checkinAt,omitempty"` // nil = still out
	Source      Source     `gorm:"size:20;not null;index" json:"source"`
	Sheet       string     `gorm:"size:120" json:"sheet,omitempty"`
}

func (BorrowRecord) TableName() string { return RecordTable }

// Complete reports whether the record carries a check-in time.
func (r BorrowRecord) Complete() bool { return r.CheckinAt != nil }

func (r BorrowRecord) BaseName() string { return BaseName(r.ItemName) }

var trailingNumber = regexp.MustCompile(`\s+\d+$`)

// BaseName strips the unit number from an item name ("Camera 3" -> "Camera").
func BaseName(name string) string {
	return strings.TrimSpace(trailingNumber.ReplaceAllString(strings.TrimSpace(name), ""))
}
