package normalize

import "strings"

// Row is one raw input row keyed by its source column names.
type Row map[string]string

// Get returns the first non-empty value among the given column aliases.
// Exact keys are tried before a case-insensitive, trimmed match.
func (r Row) Get(aliases []string) string {
	for _, a := range aliases {
		if v, ok := r[a]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	for _, a := range aliases {
		want := strings.ToLower(strings.TrimSpace(a))
		for k, v := range r {
			if strings.ToLower(strings.TrimSpace(k)) != want {
				continue
			}
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// Columns lists the accepted column names for each canonical field.
type Columns struct {
	ItemCode []string `yaml:"item_code"`
	ItemName []string `yaml:"item_name"`
	Checkout []string `yaml:"checkout"`
	Checkin  []string `yaml:"checkin"`
	Sheet    []string `yaml:"sheet"`
	Action   []string `yaml:"action"`
	Time     []string `yaml:"time"`
}

// Canonical field names. Always accepted whatever the configured aliases.
const (
	ColItemCode = "item_code"
	ColItemName = "item_name"
	ColCheckout = "checkout_time"
	ColCheckin  = "checkin_time"
	ColSheet    = "sheet"
	ColAction   = "action"
	ColTime     = "time"
)

// DefaultColumns matches the spreadsheet exports of both feeds.
func DefaultColumns() Columns {
	return Columns{
		ItemCode: []string{"Code", "item code"},
		ItemName: []string{"Equipment Name", "item name(with num)", "item name"},
		Checkout: []string{"Start", "started", "checkout"},
		Checkin:  []string{"finished", "checkin"},
		Sheet:    []string{"sheet_source"},
		Action:   []string{"Action"},
		Time:     []string{"Time"},
	}
}

// Merge returns c with empty alias lists filled from def.
func (c Columns) Merge(def Columns) Columns {
	pick := func(a, b []string) []string {
		if len(a) > 0 {
			return a
		}
		return b
	}
	return Columns{
		ItemCode: pick(c.ItemCode, def.ItemCode),
		ItemName: pick(c.ItemName, def.ItemName),
		Checkout: pick(c.Checkout, def.Checkout),
		Checkin:  pick(c.Checkin, def.Checkin),
		Sheet:    pick(c.Sheet, def.Sheet),
		Action:   pick(c.Action, def.Action),
		Time:     pick(c.Time, def.Time),
	}
}

func withCanonical(canon string, aliases []string) []string {
	return append([]string{canon}, aliases...)
}

func (c Columns) itemCode() []string { return withCanonical(ColItemCode, c.ItemCode) }
func (c Columns) itemName() []string { return withCanonical(ColItemName, c.ItemName) }
func (c Columns) checkout() []string { return withCanonical(ColCheckout, c.Checkout) }
func (c Columns) checkin() []string  { return withCanonical(ColCheckin, c.Checkin) }
func (c Columns) sheet() []string    { return withCanonical(ColSheet, c.Sheet) }
func (c Columns) action() []string   { return withCanonical(ColAction, c.Action) }
func (c Columns) time() []string     { return withCanonical(ColTime, c.Time) }
