package normalize

import (
	"errors"
	"fmt"
)

var (
	ErrMissingItemCode       = errors.New("missing item code")
	ErrInvalidTimestamp      = errors.New("invalid timestamp")
	ErrCheckinBeforeCheckout = errors.New("checkin before checkout")
	ErrOrphanCheckin         = errors.New("check-in without matching check-out")
	ErrUnknownAction         = errors.New("unknown action")
)

// RowError is a rejected input row. Index is the row position in the batch.
type RowError struct {
	Index  int
	Err    error
	Detail string
}

func (e *RowError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("row %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("row %d: %v (%s)", e.Index, e.Err, e.Detail)
}

func (e *RowError) Unwrap() error { return e.Err }

// Reason returns the stable reason code reported for a rejection.
func (e *RowError) Reason() string { return Reason(e.Err) }

func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingItemCode):
		return "MissingItemCode"
	case errors.Is(err, ErrInvalidTimestamp):
		return "InvalidTimestamp"
	case errors.Is(err, ErrCheckinBeforeCheckout):
		return "CheckinBeforeCheckout"
	case errors.Is(err, ErrOrphanCheckin):
		return "OrphanCheckin"
	case errors.Is(err, ErrUnknownAction):
		return "UnknownAction"
	default:
		return "Invalid"
	}
}

func rowErr(idx int, err error, format string, args ...any) *RowError {
	return &RowError{Index: idx, Err: err, Detail: fmt.Sprintf(format, args...)}
}
