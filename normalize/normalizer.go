package normalize

import (
	"sort"
	"strings"
	"time"

	"borrow_analytics/models"
)

// Resolver maps an item to its category.
type Resolver interface {
	Resolve(code, baseName string) string
}

type Option func(*Normalizer)

func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// WithColumns sets the column aliases for one source.
func WithColumns(src models.Source, cols Columns) Option {
	return func(n *Normalizer) { n.cols[src] = cols.Merge(DefaultColumns()) }
}

// Normalizer turns raw rows of either feed into BorrowRecords.
type Normalizer struct {
	resolver Resolver
	loc      *time.Location
	cols     map[models.Source]Columns
}

func New(resolver Resolver, opts ...Option) *Normalizer {
	n := &Normalizer{
		resolver: resolver,
		loc:      time.Local,
		cols: map[models.Source]Columns{
			models.SourceHistorical: DefaultColumns(),
			models.SourceRealtime:   DefaultColumns(),
		},
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

func (n *Normalizer) Location() *time.Location { return n.loc }

func (n *Normalizer) columns(src models.Source) Columns {
	if c, ok := n.cols[src]; ok {
		return c
	}
	return DefaultColumns()
}

// Normalize converts one borrow-style row (checkout and optional checkin
// columns) into a record.
func (n *Normalizer) Normalize(idx int, row Row, src models.Source) (models.BorrowRecord, *RowError) {
	cols := n.columns(src)
	code := NormalizeCode(row.Get(cols.itemCode()))
	if code == "" {
		return models.BorrowRecord{}, rowErr(idx, ErrMissingItemCode, "no value in %s", strings.Join(cols.ItemCode, "/"))
	}
	raw := row.Get(cols.checkout())
	checkout, err := ParseTimestamp(raw, n.loc)
	if err != nil {
		return models.BorrowRecord{}, rowErr(idx, ErrInvalidTimestamp, "checkout %q", raw)
	}
	rawIn := row.Get(cols.checkin())
	checkin, err := parseOptional(rawIn, n.loc)
	if err != nil {
		return models.BorrowRecord{}, rowErr(idx, ErrInvalidTimestamp, "checkin %q", rawIn)
	}
	if checkin != nil && checkin.Before(checkout) {
		return models.BorrowRecord{}, rowErr(idx, ErrCheckinBeforeCheckout, "%s < %s",
			checkin.Format(time.RFC3339), checkout.Format(time.RFC3339))
	}
	return n.build(code, row.Get(cols.itemName()), checkout, checkin, src, row.Get(cols.sheet())), nil
}

func (n *Normalizer) build(code, name string, checkout time.Time, checkin *time.Time, src models.Source, sheet string) models.BorrowRecord {
	name = strings.TrimSpace(name)
	category := models.UnmappedCategory
	if n.resolver != nil {
		category = n.resolver.Resolve(code, models.BaseName(name))
	}
	return models.BorrowRecord{
		Fingerprint: Fingerprint(code, checkout),
		ItemCode:    code,
		ItemName:    name,
		Category:    category,
		CheckoutAt:  checkout,
		CheckinAt:   checkin,
		Source:      src,
		Sheet:       sheet,
	}
}

// NormalizeBatch normalizes a whole batch. Rows carrying an action column
// ("Check Out" / "Check In") are paired per item before normalization; all
// other rows are treated as complete borrow rows. Rejections never stop the
// batch. Records come back in input order of their checkout row.
func (n *Normalizer) NormalizeBatch(rows []Row, src models.Source) ([]models.BorrowRecord, []*RowError) {
	cols := n.columns(src)
	type indexed struct {
		idx int
		rec models.BorrowRecord
	}
	var (
		out     []indexed
		rejects []*RowError
		actions []Action
	)
	for i, row := range rows {
		if row.Get(cols.action()) != "" {
			a, rerr := n.parseAction(i, row, cols)
			if rerr != nil {
				rejects = append(rejects, rerr)
				continue
			}
			actions = append(actions, a)
			continue
		}
		rec, rerr := n.Normalize(i, row, src)
		if rerr != nil {
			rejects = append(rejects, rerr)
			continue
		}
		out = append(out, indexed{i, rec})
	}

	pairs, orphans := PairActions(actions)
	rejects = append(rejects, orphans...)
	for _, p := range pairs {
		var in *time.Time
		if p.In != nil {
			t := p.In.At
			in = &t
		}
		out = append(out, indexed{p.Out.Index, n.build(p.Out.Code, p.Out.Name, p.Out.At, in, src, p.Out.Sheet)})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].idx < out[j].idx })
	sort.SliceStable(rejects, func(i, j int) bool { return rejects[i].Index < rejects[j].Index })
	recs := make([]models.BorrowRecord, len(out))
	for i, o := range out {
		recs[i] = o.rec
	}
	return recs, rejects
}

func (n *Normalizer) parseAction(idx int, row Row, cols Columns) (Action, *RowError) {
	code := NormalizeCode(row.Get(cols.itemCode()))
	if code == "" {
		return Action{}, rowErr(idx, ErrMissingItemCode, "no value in %s", strings.Join(cols.ItemCode, "/"))
	}
	kind, ok := parseActionKind(row.Get(cols.action()))
	if !ok {
		return Action{}, rowErr(idx, ErrUnknownAction, "%q", row.Get(cols.action()))
	}
	raw := row.Get(cols.time())
	if raw == "" {
		raw = row.Get(cols.checkout())
	}
	at, err := ParseTimestamp(raw, n.loc)
	if err != nil {
		return Action{}, rowErr(idx, ErrInvalidTimestamp, "time %q", raw)
	}
	return Action{
		Index: idx,
		Code:  code,
		Name:  strings.TrimSpace(row.Get(cols.itemName())),
		Sheet: row.Get(cols.sheet()),
		Kind:  kind,
		At:    at,
	}, nil
}
