package alert

import (
	"github.com/markcheno/go-talib"
)

// Indicator periods for the advisory market context.
const (
	rsiPeriod = 14
	rocPeriod = 10
)

// minContextCloses is the fewest index closes that yield a defined
// RSI(14): one warm-up bar plus the period.
const minContextCloses = rsiPeriod + 1

// MarketContext carries advisory index indicators attached to a
// decision. It never feeds the scoring pipeline.
type MarketContext struct {
	Symbol string  `json:"symbol"`
	RSI14  float64 `json:"rsi_14"`
	ROC10  float64 `json:"roc_10"`
}

// ComputeMarketContext derives RSI(14) and ROC(10) from the index close
// series in ascending date order. Returns nil when the series is too
// short or either indicator is undefined at the last bar.
func ComputeMarketContext(symbol string, closes []float64) *MarketContext {
	if len(closes) < minContextCloses {
		return nil
	}

	rsi := talib.Rsi(closes, rsiPeriod)
	roc := talib.Roc(closes, rocPeriod)

	lastRSI := rsi[len(rsi)-1]
	lastROC := roc[len(roc)-1]
	if isNaN(lastRSI) || isNaN(lastROC) {
		return nil
	}

	return &MarketContext{
		Symbol: symbol,
		RSI14:  lastRSI,
		ROC10:  lastROC,
	}
}

// isNaN checks if a float64 is NaN
func isNaN(f float64) bool {
	return f != f
}
