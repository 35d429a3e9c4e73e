package scheduler

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/alert"
	"github.com/aristath/liquidity-sentinel/internal/display"
	"github.com/aristath/liquidity-sentinel/internal/domain"
	"github.com/aristath/liquidity-sentinel/internal/events"
	"github.com/aristath/liquidity-sentinel/internal/history"
	"github.com/aristath/liquidity-sentinel/internal/risk"
	"github.com/aristath/liquidity-sentinel/internal/utils"
)

// Random walk parameters for the simulated probability. Each tick moves
// the probability by uniform[-0.05, 0.10), clamped to [0.10, 0.95], with
// a 20% chance of a +0.25 spike so RED alerts actually occur during
// demos.
const (
	walkFloor     = 0.10
	walkCeiling   = 0.95
	walkDriftMin  = -0.05
	walkDriftSpan = 0.15
	spikeChance   = 0.20
	spikeSize     = 0.25
	seedBaseline  = 0.30
)

// MonitorJob simulates a live risk feed in test mode. Each tick random-
// walks the latest probability, re-evaluates it through the decision
// engine and publishes the resulting signal. The walk is simulation
// only: it never touches the scored rows.
type MonitorJob struct {
	repo        *risk.Repository
	decisions   *alert.Engine
	archive     *history.Archive
	broadcaster *display.Broadcaster
	events      *events.Manager
	rng         *rand.Rand
	log         zerolog.Logger

	mu     sync.Mutex
	prob   float64
	seeded bool
}

// NewMonitorJob creates the monitor job. rng must not be shared with the
// pipeline service: ticks run on the cron goroutine.
func NewMonitorJob(
	repo *risk.Repository,
	decisions *alert.Engine,
	archive *history.Archive,
	broadcaster *display.Broadcaster,
	em *events.Manager,
	rng *rand.Rand,
	log zerolog.Logger,
) *MonitorJob {
	return &MonitorJob{
		repo:        repo,
		decisions:   decisions,
		archive:     archive,
		broadcaster: broadcaster,
		events:      em,
		rng:         rng,
		log:         log.With().Str("job", "monitor").Logger(),
	}
}

// Name returns the job name.
func (j *MonitorJob) Name() string {
	return "monitor"
}

// Run performs one simulated tick.
func (j *MonitorJob) Run() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.seeded {
		j.prob = j.seedProbability()
		j.seeded = true
	}

	j.prob = clamp(j.prob+walkDriftMin+j.rng.Float64()*walkDriftSpan, walkFloor, walkCeiling)
	if j.rng.Float64() < spikeChance {
		j.prob = math.Min(j.prob+spikeSize, walkCeiling)
	}

	decision := j.decisions.Evaluate(j.prob)
	sig := decision.Signal(uuid.New().String(), time.Now().UTC().Format(utils.ISODate), domain.SourceMonitor)

	if err := j.archive.Append(sig); err != nil {
		return fmt.Errorf("failed to archive monitor signal: %w", err)
	}
	j.broadcaster.Send(sig)
	j.events.Emit("monitor", events.NewSignalUpdatedData(sig))

	j.log.Debug().
		Float64("probability", j.prob).
		Str("level", string(sig.RiskLevel)).
		Msg("Monitor tick")
	return nil
}

// seedProbability starts the walk from the last scored probability, or
// a calm baseline when nothing has been scored yet.
func (j *MonitorJob) seedProbability() float64 {
	latest, err := j.repo.Latest()
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to load latest score, seeding monitor at baseline")
		return seedBaseline
	}
	if latest == nil {
		return seedBaseline
	}
	return latest.RiskScore
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
