// Package risk turns feature rows into scored, labeled rows and runs the
// end-to-end pipeline: load series, compute features, label crises,
// assign scores, persist the run and publish the result.
package risk

import (
	"math/rand"
	"time"

	"github.com/aristath/liquidity-sentinel/internal/domain"
	"github.com/aristath/liquidity-sentinel/internal/utils"
)

// recentWindowDays is the trailing calendar window the labeler extends
// crisis coverage into when test mode is on.
const recentWindowDays = 30

// crisisSampleProbability is the per-day Bernoulli probability used for
// test-mode labeling of recent days.
const crisisSampleProbability = 0.3

// Labeler marks feature rows as crisis days. A fixed set of historical
// crisis dates provides the deterministic labels; in test mode, days
// inside the trailing 30-calendar-day window are relabeled at random
// (overwriting the deterministic label) so the scoring stage always has
// something recent to react to.
//
// The clock and randomness source are injected so tests can pin both.
type Labeler struct {
	crisisDates map[string]struct{}
	testMode    bool
	now         func() time.Time
	rng         *rand.Rand
}

// NewLabeler creates a labeler for the given historical crisis dates.
func NewLabeler(crisisDates []string, testMode bool, now func() time.Time, rng *rand.Rand) *Labeler {
	dates := make(map[string]struct{}, len(crisisDates))
	for _, d := range crisisDates {
		dates[d] = struct{}{}
	}
	return &Labeler{
		crisisDates: dates,
		testMode:    testMode,
		now:         now,
		rng:         rng,
	}
}

// Label sets the Crisis field on each row in place and returns the
// number of rows labeled as crisis days.
func (l *Labeler) Label(rows []domain.FeatureRow) int {
	recent := l.recentDates()

	count := 0
	for i := range rows {
		_, historic := l.crisisDates[rows[i].Date]
		crisis := historic

		// Test mode overwrites labels inside the recent window, in
		// either direction
		if _, ok := recent[rows[i].Date]; ok {
			crisis = l.rng.Float64() < crisisSampleProbability
		}

		rows[i].Crisis = crisis
		if crisis {
			count++
		}
	}
	return count
}

// recentDates returns the trailing 30 calendar days (today inclusive) as
// a date set, or nil outside test mode.
func (l *Labeler) recentDates() map[string]struct{} {
	if !l.testMode {
		return nil
	}

	end := l.now()
	recent := make(map[string]struct{}, recentWindowDays)
	for i := 0; i < recentWindowDays; i++ {
		d := end.AddDate(0, 0, -i)
		recent[d.Format(utils.ISODate)] = struct{}{}
	}
	return recent
}
