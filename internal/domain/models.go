// Package domain provides core domain models and types.
package domain

import "time"

// RiskLevel represents the severity band of a liquidity risk signal.
type RiskLevel string

const (
	// RiskLevelRed - probability at or above the red threshold, liquidate
	RiskLevelRed RiskLevel = "RED"
	// RiskLevelAmber - probability at or above the amber threshold, reduce exposure
	RiskLevelAmber RiskLevel = "AMBER"
	// RiskLevelGreen - below both thresholds, keep monitoring
	RiskLevelGreen RiskLevel = "GREEN"
)

// SignalSource identifies which component produced a signal.
type SignalSource string

const (
	// SourcePipeline - signal produced by a full pipeline run over real data
	SourcePipeline SignalSource = "pipeline"
	// SourceMonitor - simulated signal produced by the live monitor loop
	SourceMonitor SignalSource = "monitor"
)

// DailyRecord is one aligned day of raw market data: a volume for every
// tracked security plus the reference index close. The date is an ISO
// string (YYYY-MM-DD) so lexicographic order equals chronological order.
type DailyRecord struct {
	Date       string             `json:"date"`
	Volumes    map[string]float64 `json:"volumes"`
	IndexClose float64            `json:"index_close"`
}

// SecurityFeatures holds the derived liquidity features for one security
// on one trading day. Rows only exist for days where every feature could
// be computed, so all fields are plain floats.
type SecurityFeatures struct {
	Volume           float64 `json:"volume"`
	AvgVolume        float64 `json:"avg_volume"`
	LiquidityRatio   float64 `json:"liquidity_ratio"`
	RiskComponent    float64 `json:"risk_component"`
	Momentum         float64 `json:"momentum"`
	VolumeVol        float64 `json:"volume_vol"`
	LiquidityPremium float64 `json:"liquidity_premium"`
}

// FeatureRow is one fully-scored trading day: per-security liquidity
// features, market-wide index features, calendar context, the crisis
// label and the final risk score.
type FeatureRow struct {
	Date          string                      `json:"date"`
	Securities    map[string]SecurityFeatures `json:"securities"`
	IndexVol      float64                     `json:"index_vol"`
	IndexMomentum float64                     `json:"index_momentum"`
	DayOfWeek     int                         `json:"day_of_week"` // 0 = Monday ... 6 = Sunday
	Month         int                         `json:"month"`
	Quarter       int                         `json:"quarter"`
	Crisis        bool                        `json:"crisis"`
	RiskScore     float64                     `json:"risk_score"`
}

// Signal is an actionable liquidity risk alert. Signals are append-only:
// every pipeline run and every monitor tick archives exactly one.
type Signal struct {
	ID              int64        `json:"id,omitempty"`
	RunID           string       `json:"run_id"`
	CreatedAt       time.Time    `json:"created_at"`
	TradeDate       string       `json:"trade_date"`
	RiskProbability float64      `json:"risk_probability"`
	RiskLevel       RiskLevel    `json:"risk_level"`
	Action          string       `json:"action"`
	Code            string       `json:"code"`
	Source          SignalSource `json:"source"`
}
