package testing

import (
	"time"

	"github.com/aristath/liquidity-sentinel/internal/domain"
)

// Default symbols used across tests. They mirror the shipped
// configuration so fixtures read like production data.
const (
	TestSecurityA   = "TSCO.L"
	TestSecurityB   = "BP.L"
	TestIndexSymbol = "^FTSE"
)

// TestSecurities returns the default security pair in configuration order.
func TestSecurities() []string {
	return []string{TestSecurityA, TestSecurityB}
}

// DateSequence returns n consecutive calendar dates starting at start
// (ISO format). Feature computations only care about row order, not
// weekday gaps, so consecutive days keep fixtures easy to reason about.
func DateSequence(start string, n int) []string {
	t, err := time.Parse("2006-01-02", start)
	if err != nil {
		panic("invalid fixture start date: " + start)
	}
	dates := make([]string, n)
	for i := 0; i < n; i++ {
		dates[i] = t.AddDate(0, 0, i).Format("2006-01-02")
	}
	return dates
}

// ConstantRecords builds an aligned series where every security trades
// the same volume every day and the index is flat. Useful when a test
// wants fully deterministic derived features (ratio 1.0, momentum 0.0).
func ConstantRecords(start string, days int, volume, indexClose float64) []domain.DailyRecord {
	records := make([]domain.DailyRecord, 0, days)
	for _, date := range DateSequence(start, days) {
		records = append(records, domain.DailyRecord{
			Date: date,
			Volumes: map[string]float64{
				TestSecurityA: volume,
				TestSecurityB: volume,
			},
			IndexClose: indexClose,
		})
	}
	return records
}

// TrendingRecords builds an aligned series with gently drifting volumes
// and index closes. Values stay strictly positive so no feature goes
// null beyond the structural warm-up rows.
func TrendingRecords(start string, days int) []domain.DailyRecord {
	records := make([]domain.DailyRecord, 0, days)
	for i, date := range DateSequence(start, days) {
		drift := float64(i)
		wiggle := float64(i%5) * 0.01
		records = append(records, domain.DailyRecord{
			Date: date,
			Volumes: map[string]float64{
				TestSecurityA: 1_000_000 + drift*10_000 + wiggle*50_000,
				TestSecurityB: 2_000_000 - drift*5_000 + wiggle*80_000,
			},
			IndexClose: 7500 + drift*3 + wiggle*40,
		})
	}
	return records
}

// FeatureRowFixture returns a fully-populated scored row for the given
// date. Tests mutate individual fields as needed.
func FeatureRowFixture(date string) domain.FeatureRow {
	return domain.FeatureRow{
		Date: date,
		Securities: map[string]domain.SecurityFeatures{
			TestSecurityA: {
				Volume:           1_000_000,
				AvgVolume:        950_000,
				LiquidityRatio:   1.05,
				RiskComponent:    0.74,
				Momentum:         0.02,
				VolumeVol:        0.015,
				LiquidityPremium: 70.0,
			},
			TestSecurityB: {
				Volume:           2_000_000,
				AvgVolume:        2_100_000,
				LiquidityRatio:   0.95,
				RiskComponent:    0.67,
				Momentum:         -0.01,
				VolumeVol:        0.022,
				LiquidityPremium: 43.2,
			},
		},
		IndexVol:      0.011,
		IndexMomentum: 0.025,
		DayOfWeek:     2,
		Month:         6,
		Quarter:       2,
		Crisis:        false,
		RiskScore:     0.3,
	}
}

// SignalFixture returns an archived signal for tests.
func SignalFixture(tradeDate string, prob float64, level domain.RiskLevel) domain.Signal {
	return domain.Signal{
		RunID:           "test-run",
		CreatedAt:       time.Now().UTC(),
		TradeDate:       tradeDate,
		RiskProbability: prob,
		RiskLevel:       level,
		Action:          "MONITOR LIQUIDITY CONDITIONS",
		Code:            "LIQ_RISK GREEN 30%",
		Source:          domain.SourcePipeline,
	}
}
