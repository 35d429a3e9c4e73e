package features

import (
	"github.com/aristath/liquidity-sentinel/pkg/formulas"
)

// WindowColumns holds the rolling-window features for one security,
// aligned with the input volume column. AvgVolume always has a value
// because the trailing window truncates at the start of the series;
// the other two stay nil where their inputs are undefined.
type WindowColumns struct {
	AvgVolume      []float64
	LiquidityRatio []*float64 // nil when the window average is zero
	RiskComponent  []*float64 // nil on the first day or after a zero-volume day
}

// WindowEngine computes per-security rolling-window liquidity features.
type WindowEngine struct {
	window int
}

// NewWindowEngine creates a window engine with the given rolling window
// length in trading days.
func NewWindowEngine(window int) *WindowEngine {
	return &WindowEngine{window: window}
}

// Compute derives the window features for one volume column.
//
// For each day d the average volume is the mean over the trailing
// min(window, d+1) days - the window truncates rather than waiting for
// a full span, so early days average over what exists. The liquidity
// ratio is the day's volume over that average, and the risk component
// blends the ratio with the day-over-day volume change:
//
//	risk = ratio*0.7 + (1 - volume[d]/volume[d-1])*0.3
//
// A nil ratio propagates into a nil risk component.
func (e *WindowEngine) Compute(volumes []float64) WindowColumns {
	n := len(volumes)
	cols := WindowColumns{
		AvgVolume:      make([]float64, n),
		LiquidityRatio: make([]*float64, n),
		RiskComponent:  make([]*float64, n),
	}

	for i := 0; i < n; i++ {
		start := i - e.window + 1
		if start < 0 {
			start = 0
		}
		avg := formulas.Mean(volumes[start : i+1])
		cols.AvgVolume[i] = avg

		if avg != 0 {
			ratio := volumes[i] / avg
			cols.LiquidityRatio[i] = &ratio
		}

		if i > 0 && volumes[i-1] != 0 && cols.LiquidityRatio[i] != nil {
			risk := *cols.LiquidityRatio[i]*0.7 + (1-volumes[i]/volumes[i-1])*0.3
			cols.RiskComponent[i] = &risk
		}
	}

	return cols
}
