// Package series stores and retrieves the aligned daily market series:
// per-security volumes plus the reference index close, one row per
// trading day. The store is deliberately strict - it refuses to accept
// or return a series whose dates are duplicated or out of order, because
// every downstream feature computation assumes a clean time axis.
package series

import (
	"fmt"

	"github.com/aristath/liquidity-sentinel/internal/domain"
)

// Table is the aligned series in columnar form. Dates are ISO strings in
// strictly increasing order; every column has exactly len(Dates) entries.
type Table struct {
	Dates      []string
	Volumes    map[string][]float64 // symbol -> volume column
	IndexClose []float64
}

// NewTable builds a columnar table from daily records, validating
// alignment as it goes. It returns a *domain.MisalignedDataError for
// duplicate or out-of-order dates and a plain error when a record is
// missing a volume for one of the expected symbols.
func NewTable(records []domain.DailyRecord, symbols []string) (*Table, error) {
	t := &Table{
		Dates:      make([]string, 0, len(records)),
		Volumes:    make(map[string][]float64, len(symbols)),
		IndexClose: make([]float64, 0, len(records)),
	}
	for _, sym := range symbols {
		t.Volumes[sym] = make([]float64, 0, len(records))
	}

	prev := ""
	for _, rec := range records {
		if prev != "" {
			if rec.Date == prev {
				return nil, &domain.MisalignedDataError{Date: rec.Date, Reason: "duplicate date"}
			}
			if rec.Date < prev {
				return nil, &domain.MisalignedDataError{Date: rec.Date, Reason: "out-of-order date"}
			}
		}
		prev = rec.Date

		for _, sym := range symbols {
			vol, ok := rec.Volumes[sym]
			if !ok {
				return nil, fmt.Errorf("record %s is missing a volume for %s", rec.Date, sym)
			}
			t.Volumes[sym] = append(t.Volumes[sym], vol)
		}
		t.Dates = append(t.Dates, rec.Date)
		t.IndexClose = append(t.IndexClose, rec.IndexClose)
	}

	return t, nil
}

// Len returns the number of trading days in the table.
func (t *Table) Len() int {
	return len(t.Dates)
}

// LastDate returns the most recent date, or "" for an empty table.
func (t *Table) LastDate() string {
	if len(t.Dates) == 0 {
		return ""
	}
	return t.Dates[len(t.Dates)-1]
}
