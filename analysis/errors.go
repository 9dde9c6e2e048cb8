package analysis

import (
	"context"
	"errors"

	"borrow_analytics/models"
)

var (
	ErrItemNotFound     = errors.New("item not found")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Code maps an analysis error onto the failure code carried in results.
func Code(err error) models.FailureCode {
	switch {
	case errors.Is(err, ErrInvalidParameter):
		return models.FailInvalidParameter
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.FailCancelled
	default:
		return models.FailItemNotFound
	}
}

// Failed builds a failure result. Query-time errors are values, not faults.
func Failed(kind models.ResultKind, mode Mode, version uint64, err error) models.AnalysisResult {
	return models.AnalysisResult{
		Kind:            kind,
		OK:              false,
		Code:            Code(err),
		Reason:          err.Error(),
		Mode:            string(mode),
		SnapshotVersion: version,
	}
}

func success(kind models.ResultKind, sc *Scope) models.AnalysisResult {
	return models.AnalysisResult{Kind: kind, OK: true, Mode: string(sc.Mode), SnapshotVersion: sc.Version}
}
