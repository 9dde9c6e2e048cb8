package normalize

import (
	"sort"
	"strings"
	"time"
)

type ActionKind int

const (
	CheckOut ActionKind = iota
	CheckIn
)

func parseActionKind(v string) (ActionKind, bool) {
	switch strings.ToLower(strings.Join(strings.Fields(v), " ")) {
	case "check out", "checkout", "check-out", "out":
		return CheckOut, true
	case "check in", "checkin", "check-in", "in":
		return CheckIn, true
	}
	return 0, false
}

// Action is one live-feed row: a single check-out or check-in event.
type Action struct {
	Index int
	Code  string
	Name  string
	Sheet string
	Kind  ActionKind
	At    time.Time
}

// Pair is a check-out with its matching check-in, if one arrived.
type Pair struct {
	Out Action
	In  *Action
}

// PairActions matches check-ins to the oldest outstanding check-out of the
// same item (FIFO, in time order). Check-ins with nothing outstanding are
// returned as OrphanCheckin rejections; unmatched check-outs stay open.
func PairActions(actions []Action) ([]Pair, []*RowError) {
	byCode := make(map[string][]Action)
	var codes []string
	for _, a := range actions {
		if _, ok := byCode[a.Code]; !ok {
			codes = append(codes, a.Code)
		}
		byCode[a.Code] = append(byCode[a.Code], a)
	}
	sort.Strings(codes)

	var (
		pairs   []Pair
		orphans []*RowError
	)
	for _, code := range codes {
		evs := byCode[code]
		sort.SliceStable(evs, func(i, j int) bool {
			if !evs[i].At.Equal(evs[j].At) {
				return evs[i].At.Before(evs[j].At)
			}
			return evs[i].Index < evs[j].Index
		})
		var pending []Action
		for _, ev := range evs {
			if ev.Kind == CheckOut {
				pending = append(pending, ev)
				continue
			}
			if len(pending) == 0 {
				orphans = append(orphans, rowErr(ev.Index, ErrOrphanCheckin, "item %s at %s", code, ev.At.Format(time.RFC3339)))
				continue
			}
			in := ev
			pairs = append(pairs, Pair{Out: pending[0], In: &in})
			pending = pending[1:]
		}
		for _, out := range pending {
			pairs = append(pairs, Pair{Out: out})
		}
	}
	return pairs, orphans
}
