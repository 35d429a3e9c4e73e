package domain

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when the aligned series is too short
// (or empty after filtering) to compute the full feature set. Callers
// should treat it as a data problem, not a bug.
var ErrInsufficientData = errors.New("insufficient data")

// MisalignedDataError reports a structural defect in the market data
// series: a duplicate or out-of-order date. The pipeline never attempts
// to repair alignment problems; it aborts the run so the bad ingest can
// be investigated.
type MisalignedDataError struct {
	Date   string // the offending date
	Reason string // "duplicate date" or "out-of-order date"
}

func (e *MisalignedDataError) Error() string {
	return fmt.Sprintf("misaligned market data at %s: %s", e.Date, e.Reason)
}
