// Package alert turns a risk probability into an actionable decision:
// severity level, recommended action and a Bloomberg-style signal code.
package alert

import (
	"fmt"
	"time"

	"github.com/aristath/liquidity-sentinel/internal/domain"
)

// Decision is the outcome of evaluating one risk probability.
type Decision struct {
	Timestamp       time.Time        `json:"timestamp"`
	Pair            string           `json:"pair"`
	RiskProbability float64          `json:"risk_probability"`
	RiskLevel       domain.RiskLevel `json:"risk_level"`
	Action          string           `json:"action"`
	Code            string           `json:"code"`
	Context         *MarketContext   `json:"context,omitempty"`
}

// Signal converts the decision into an archivable signal.
func (d Decision) Signal(runID, tradeDate string, source domain.SignalSource) domain.Signal {
	return domain.Signal{
		RunID:           runID,
		CreatedAt:       d.Timestamp,
		TradeDate:       tradeDate,
		RiskProbability: d.RiskProbability,
		RiskLevel:       d.RiskLevel,
		Action:          d.Action,
		Code:            d.Code,
		Source:          source,
	}
}

// Engine maps probabilities to decisions using two thresholds. Both
// comparisons are inclusive: a probability exactly at a threshold takes
// the more severe level.
type Engine struct {
	redThreshold   float64
	amberThreshold float64
	pair           string // e.g. "BP.L/TSCO.L", used in the AMBER action text
}

// NewEngine creates a decision engine. pair is the display label for the
// monitored security pair.
func NewEngine(redThreshold, amberThreshold float64, pair string) *Engine {
	return &Engine{
		redThreshold:   redThreshold,
		amberThreshold: amberThreshold,
		pair:           pair,
	}
}

// Evaluate produces the decision for a risk probability. The timestamp
// is the evaluation time in UTC.
func (e *Engine) Evaluate(probability float64) Decision {
	level := domain.RiskLevelGreen
	action := "MONITOR LIQUIDITY CONDITIONS"

	switch {
	case probability >= e.redThreshold:
		level = domain.RiskLevelRed
		action = "LIQUIDATE POSITIONS | Hedge with FTSE futures"
	case probability >= e.amberThreshold:
		level = domain.RiskLevelAmber
		action = fmt.Sprintf("REDUCE EXPOSURE | Buy put options on %s", e.pair)
	}

	return Decision{
		Timestamp:       time.Now().UTC(),
		Pair:            e.pair,
		RiskProbability: probability,
		RiskLevel:       level,
		Action:          action,
		Code:            fmt.Sprintf("LIQ_RISK %s %.0f%%", level, probability*100),
	}
}
