package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/liquidity-sentinel/internal/domain"
)

func TestEngine_Evaluate(t *testing.T) {
	engine := NewEngine(0.85, 0.70, "BP.L/TSCO.L")

	tests := []struct {
		name        string
		probability float64
		level       domain.RiskLevel
		action      string
		code        string
	}{
		{
			name:        "red above threshold",
			probability: 0.92,
			level:       domain.RiskLevelRed,
			action:      "LIQUIDATE POSITIONS | Hedge with FTSE futures",
			code:        "LIQ_RISK RED 92%",
		},
		{
			name:        "red at boundary",
			probability: 0.85,
			level:       domain.RiskLevelRed,
			action:      "LIQUIDATE POSITIONS | Hedge with FTSE futures",
			code:        "LIQ_RISK RED 85%",
		},
		{
			name:        "amber just below red",
			probability: 0.84999,
			level:       domain.RiskLevelAmber,
			action:      "REDUCE EXPOSURE | Buy put options on BP.L/TSCO.L",
			code:        "LIQ_RISK AMBER 85%",
		},
		{
			name:        "amber at boundary",
			probability: 0.70,
			level:       domain.RiskLevelAmber,
			action:      "REDUCE EXPOSURE | Buy put options on BP.L/TSCO.L",
			code:        "LIQ_RISK AMBER 70%",
		},
		{
			name:        "green below amber",
			probability: 0.699,
			level:       domain.RiskLevelGreen,
			action:      "MONITOR LIQUIDITY CONDITIONS",
			code:        "LIQ_RISK GREEN 70%",
		},
		{
			name:        "green at zero",
			probability: 0.0,
			level:       domain.RiskLevelGreen,
			action:      "MONITOR LIQUIDITY CONDITIONS",
			code:        "LIQ_RISK GREEN 0%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := engine.Evaluate(tt.probability)

			assert.Equal(t, tt.level, decision.RiskLevel)
			assert.Equal(t, tt.action, decision.Action)
			assert.Equal(t, tt.code, decision.Code)
			assert.Equal(t, tt.probability, decision.RiskProbability)
			assert.Equal(t, "BP.L/TSCO.L", decision.Pair)
			assert.Equal(t, time.UTC, decision.Timestamp.Location())
			assert.WithinDuration(t, time.Now().UTC(), decision.Timestamp, 5*time.Second)
		})
	}
}

func TestDecision_Signal(t *testing.T) {
	engine := NewEngine(0.85, 0.70, "BP.L/TSCO.L")
	decision := engine.Evaluate(0.87)

	sig := decision.Signal("run-42", "2024-03-15", domain.SourcePipeline)

	assert.Equal(t, "run-42", sig.RunID)
	assert.Equal(t, "2024-03-15", sig.TradeDate)
	assert.Equal(t, domain.SourcePipeline, sig.Source)
	assert.Equal(t, decision.Timestamp, sig.CreatedAt)
	assert.Equal(t, domain.RiskLevelRed, sig.RiskLevel)
	assert.Equal(t, "LIQ_RISK RED 87%", sig.Code)
	assert.Equal(t, 0.87, sig.RiskProbability)
}

func TestComputeMarketContext(t *testing.T) {
	t.Run("too few closes", func(t *testing.T) {
		closes := make([]float64, 14)
		for i := range closes {
			closes[i] = 7500
		}
		assert.Nil(t, ComputeMarketContext("^FTSE", closes))
	})

	t.Run("rising series", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 7500 + float64(i)*10
		}
		ctx := ComputeMarketContext("^FTSE", closes)
		require.NotNil(t, ctx)
		assert.Equal(t, "^FTSE", ctx.Symbol)
		// Monotonic rise pins RSI at 100 and gives a positive ROC
		assert.InDelta(t, 100.0, ctx.RSI14, 1e-9)
		assert.Greater(t, ctx.ROC10, 0.0)
	})

	t.Run("falling series", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 7500 - float64(i)*10
		}
		ctx := ComputeMarketContext("^FTSE", closes)
		require.NotNil(t, ctx)
		assert.InDelta(t, 0.0, ctx.RSI14, 1e-9)
		assert.Less(t, ctx.ROC10, 0.0)
	})
}
