package features

import (
	"fmt"
	"time"

	"github.com/aristath/liquidity-sentinel/internal/domain"
	"github.com/aristath/liquidity-sentinel/internal/series"
	"github.com/aristath/liquidity-sentinel/internal/utils"
)

// premiumEpsilon keeps the liquidity premium finite when volume
// volatility is exactly zero (constant volumes).
const premiumEpsilon = 1e-10

// DerivedEngine computes the second-stage features (momentum, volume
// volatility, liquidity premium, index context, calendar fields) and
// assembles complete feature rows. Days where any feature is undefined
// are dropped wholesale; with the default windows that is exactly the
// first indexMomentumLag rows of a well-formed series, because the
// 10-day index momentum is the slowest feature to warm up.
type DerivedEngine struct {
	shortWindow      int // momentum lag and volatility window
	indexMomentumLag int
}

// NewDerivedEngine creates a derived-feature engine.
func NewDerivedEngine(shortWindow, indexMomentumLag int) *DerivedEngine {
	return &DerivedEngine{
		shortWindow:      shortWindow,
		indexMomentumLag: indexMomentumLag,
	}
}

// securityColumns holds the per-security derived columns before row
// assembly.
type securityColumns struct {
	momentum []*float64
	volVol   []*float64
	premium  []*float64
}

// Compute assembles the final feature rows for the table. window must
// contain a WindowColumns entry for every symbol, computed from the same
// table. The returned dropped count is the number of days discarded by
// the completeness filter.
func (e *DerivedEngine) Compute(table *series.Table, symbols []string, window map[string]WindowColumns) ([]domain.FeatureRow, int, error) {
	n := table.Len()

	derived := make(map[string]securityColumns, len(symbols))
	for _, sym := range symbols {
		w, ok := window[sym]
		if !ok {
			return nil, 0, fmt.Errorf("no window columns for symbol %s", sym)
		}

		volChange := pctChangeValues(table.Volumes[sym], 1)
		volVol := rollingStd(volChange, e.shortWindow)

		premium := make([]*float64, n)
		for i := 0; i < n; i++ {
			if w.LiquidityRatio[i] == nil || volVol[i] == nil {
				continue
			}
			p := *w.LiquidityRatio[i] / (*volVol[i] + premiumEpsilon)
			premium[i] = &p
		}

		derived[sym] = securityColumns{
			momentum: pctChange(w.LiquidityRatio, e.shortWindow),
			volVol:   volVol,
			premium:  premium,
		}
	}

	idxChange := pctChangeValues(table.IndexClose, 1)
	indexVol := rollingStd(idxChange, e.shortWindow)
	indexMomentum := pctChangeValues(table.IndexClose, e.indexMomentumLag)

	rows := make([]domain.FeatureRow, 0, n)
	dropped := 0
	for i := 0; i < n; i++ {
		if !e.rowComplete(i, symbols, window, derived, indexVol, indexMomentum) {
			dropped++
			continue
		}

		dow, month, quarter, err := calendarParts(table.Dates[i])
		if err != nil {
			return nil, 0, fmt.Errorf("bad date in series: %w", err)
		}

		row := domain.FeatureRow{
			Date:          table.Dates[i],
			Securities:    make(map[string]domain.SecurityFeatures, len(symbols)),
			IndexVol:      *indexVol[i],
			IndexMomentum: *indexMomentum[i],
			DayOfWeek:     dow,
			Month:         month,
			Quarter:       quarter,
		}
		for _, sym := range symbols {
			w := window[sym]
			d := derived[sym]
			row.Securities[sym] = domain.SecurityFeatures{
				Volume:           table.Volumes[sym][i],
				AvgVolume:        w.AvgVolume[i],
				LiquidityRatio:   *w.LiquidityRatio[i],
				RiskComponent:    *w.RiskComponent[i],
				Momentum:         *d.momentum[i],
				VolumeVol:        *d.volVol[i],
				LiquidityPremium: *d.premium[i],
			}
		}
		rows = append(rows, row)
	}

	return rows, dropped, nil
}

// rowComplete reports whether every feature is defined on day i.
func (e *DerivedEngine) rowComplete(i int, symbols []string, window map[string]WindowColumns, derived map[string]securityColumns, indexVol, indexMomentum []*float64) bool {
	if indexVol[i] == nil || indexMomentum[i] == nil {
		return false
	}
	for _, sym := range symbols {
		w := window[sym]
		d := derived[sym]
		if w.LiquidityRatio[i] == nil || w.RiskComponent[i] == nil {
			return false
		}
		if d.momentum[i] == nil || d.volVol[i] == nil || d.premium[i] == nil {
			return false
		}
	}
	return true
}

// calendarParts splits an ISO date into pandas-convention calendar
// features: day of week with Monday = 0, month 1-12, quarter 1-4.
func calendarParts(date string) (dayOfWeek, month, quarter int, err error) {
	t, err := time.Parse(utils.ISODate, date)
	if err != nil {
		return 0, 0, 0, err
	}
	dayOfWeek = (int(t.Weekday()) + 6) % 7
	month = int(t.Month())
	quarter = (month-1)/3 + 1
	return dayOfWeek, month, quarter, nil
}
