package risk

import (
	"math"
	"math/rand"

	"github.com/aristath/liquidity-sentinel/internal/domain"
	"github.com/aristath/liquidity-sentinel/pkg/formulas"
)

// Synthetic score policy bounds.
const (
	baseScore      = 0.3
	recentScoreLo  = 0.6
	recentScoreHi  = 0.9
	crisisScoreLo  = 0.8
	crisisScoreHi  = 0.95
	fallbackBase   = 0.2
	fallbackWeight = 0.4
)

// Scorer assigns the per-day risk score. In test mode it applies the
// synthetic policy: a flat base score, elevated uniform scores after the
// cutoff date, and high uniform scores for a random subset of crisis
// days. Outside test mode it applies the deterministic fallback formula
// over the two securities' risk components.
type Scorer struct {
	testMode       bool
	cutoffDate     string // ISO date; days strictly after get elevated scores
	sampleFraction float64
	securities     []string // configuration order, used by the fallback formula
	rng            *rand.Rand
}

// NewScorer creates a scorer. securities must be in configuration order;
// the fallback formula weights them identically but the order is kept
// for reproducibility of logs and tests.
func NewScorer(testMode bool, cutoffDate string, sampleFraction float64, securities []string, rng *rand.Rand) *Scorer {
	return &Scorer{
		testMode:       testMode,
		cutoffDate:     cutoffDate,
		sampleFraction: sampleFraction,
		securities:     securities,
		rng:            rng,
	}
}

// Score sets RiskScore on every row in place.
func (s *Scorer) Score(rows []domain.FeatureRow) {
	if s.testMode {
		s.scoreSynthetic(rows)
		return
	}
	s.scoreFallback(rows)
}

// scoreSynthetic applies the three-layer synthetic policy. Crisis
// sampling takes precedence over the cutoff overwrite, so a sampled
// crisis day always lands in [0.8, 0.95].
func (s *Scorer) scoreSynthetic(rows []domain.FeatureRow) {
	for i := range rows {
		rows[i].RiskScore = baseScore
		if rows[i].Date > s.cutoffDate {
			rows[i].RiskScore = s.uniform(recentScoreLo, recentScoreHi)
		}
	}

	crisisIdx := make([]int, 0)
	for i := range rows {
		if rows[i].Crisis {
			crisisIdx = append(crisisIdx, i)
		}
	}
	if len(crisisIdx) == 0 {
		return
	}

	// Sample without replacement: shuffle and take round(frac * n)
	s.rng.Shuffle(len(crisisIdx), func(a, b int) {
		crisisIdx[a], crisisIdx[b] = crisisIdx[b], crisisIdx[a]
	})
	k := int(math.Round(s.sampleFraction * float64(len(crisisIdx))))
	if k > len(crisisIdx) {
		k = len(crisisIdx)
	}
	for _, idx := range crisisIdx[:k] {
		rows[idx].RiskScore = s.uniform(crisisScoreLo, crisisScoreHi)
	}
}

// scoreFallback applies risk = clip(0.2 + 0.4*A + 0.4*B, 0, 1) where A
// and B are the two securities' risk components. Rows reaching this
// point always have complete features, so there are no null checks.
func (s *Scorer) scoreFallback(rows []domain.FeatureRow) {
	for i := range rows {
		score := fallbackBase
		for _, sym := range s.securities {
			score += fallbackWeight * rows[i].Securities[sym].RiskComponent
		}
		rows[i].RiskScore = formulas.Clip(score, 0, 1)
	}
}

// uniform draws from [lo, hi).
func (s *Scorer) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
