package intervals

import (
	"time"

	"borrow_analytics/models"
)

// Interval is a span during which an item was checked out. It is either
// Closed or Open; there are no other implementations.
type Interval interface {
	Item() string
	Start() time.Time
	// EndAt is the effective end: the check-in for a Closed interval, asOf
	// for an Open one.
	EndAt(asOf time.Time) time.Time
	IsOpen() bool
	sealed()
}

type Closed struct {
	ItemCode string
	From, To time.Time
}

func (c Closed) Item() string              { return c.ItemCode }
func (c Closed) Start() time.Time          { return c.From }
func (c Closed) EndAt(time.Time) time.Time { return c.To }
func (c Closed) IsOpen() bool              { return false }
func (Closed) sealed()                     {}

// Open is an item that has not come back yet.
type Open struct {
	ItemCode string
	From     time.Time
}

func (o Open) Item() string     { return o.ItemCode }
func (o Open) Start() time.Time { return o.From }
func (o Open) EndAt(asOf time.Time) time.Time {
	if asOf.Before(o.From) {
		return o.From
	}
	return asOf
}
func (o Open) IsOpen() bool { return true }
func (Open) sealed()        {}

func Duration(iv Interval, asOf time.Time) time.Duration {
	return iv.EndAt(asOf).Sub(iv.Start())
}

// Clip returns the part of iv inside r.
func Clip(iv Interval, r models.TimeRange, asOf time.Time) (models.TimeRange, bool) {
	return r.Intersect(iv.Start(), iv.EndAt(asOf))
}

// Overlaps reports whether iv intersects r at all.
func Overlaps(iv Interval, r models.TimeRange, asOf time.Time) bool {
	_, ok := Clip(iv, r, asOf)
	return ok
}

// View renders iv for the presentation layer.
func View(iv Interval, asOf time.Time) models.IntervalView {
	v := models.IntervalView{
		Start: iv.Start(),
		Open:  iv.IsOpen(),
		Hours: Duration(iv, asOf).Hours(),
	}
	if c, ok := iv.(Closed); ok {
		end := c.To
		v.End = &end
	}
	return v
}
