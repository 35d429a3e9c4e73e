package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/alert"
	"github.com/aristath/liquidity-sentinel/internal/display"
	"github.com/aristath/liquidity-sentinel/internal/domain"
	"github.com/aristath/liquidity-sentinel/internal/events"
	"github.com/aristath/liquidity-sentinel/internal/features"
	"github.com/aristath/liquidity-sentinel/internal/history"
	"github.com/aristath/liquidity-sentinel/internal/series"
	"github.com/aristath/liquidity-sentinel/internal/utils"
)

// contextLookbackDays is how many index closes feed the advisory market
// context. Enough for RSI(14) plus warm-up with margin.
const contextLookbackDays = 60

// ServiceDeps contains all dependencies for the pipeline service.
type ServiceDeps struct {
	Series      *series.Repository
	Window      *features.WindowEngine
	Derived     *features.DerivedEngine
	Labeler     *Labeler
	Scorer      *Scorer
	Repo        *Repository
	Decisions   *alert.Engine
	Archive     *history.Archive
	Broadcaster *display.Broadcaster
	Events      *events.Manager
}

// ServiceConfig carries the pipeline parameters.
type ServiceConfig struct {
	Securities  []string
	IndexSymbol string
	ShortWindow int
	TestMode    bool
}

// Service runs the end-to-end risk pipeline. A process-wide mutex
// serializes runs: the cron trigger, a manual API trigger and startup
// can never interleave.
type Service struct {
	deps ServiceDeps
	cfg  ServiceConfig
	mu   sync.Mutex
	log  zerolog.Logger
}

// NewService creates the pipeline service.
func NewService(deps ServiceDeps, cfg ServiceConfig, log zerolog.Logger) *Service {
	return &Service{
		deps: deps,
		cfg:  cfg,
		log:  log.With().Str("service", "pipeline").Logger(),
	}
}

// Run executes one full pipeline pass: load the stored series, compute
// features, label and score, persist the run, then evaluate, archive
// and publish the latest-day signal. Returns the run record.
func (s *Service) Run() (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now().UTC()
	runID := uuid.New().String()
	log := s.log.With().Str("run_id", runID).Logger()
	defer utils.OperationTimer("pipeline_run", log)()

	table, err := s.deps.Series.Load(s.cfg.Securities)
	if err != nil {
		return nil, fmt.Errorf("failed to load market series: %w", err)
	}
	if table.Len() < s.cfg.ShortWindow {
		return nil, fmt.Errorf("%w: series has %d days, need at least %d",
			domain.ErrInsufficientData, table.Len(), s.cfg.ShortWindow)
	}

	window := make(map[string]features.WindowColumns, len(s.cfg.Securities))
	for _, sym := range s.cfg.Securities {
		window[sym] = s.deps.Window.Compute(table.Volumes[sym])
	}

	rows, dropped, err := s.deps.Derived.Compute(table, s.cfg.Securities, window)
	if err != nil {
		return nil, fmt.Errorf("failed to compute derived features: %w", err)
	}
	if dropped > 0 {
		log.Warn().
			Int("dropped", dropped).
			Msg("Rows dropped for insufficient history")
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows survived the feature filter (%d days dropped)",
			domain.ErrInsufficientData, dropped)
	}

	crisisDays := s.deps.Labeler.Label(rows)
	s.deps.Scorer.Score(rows)

	latest := rows[len(rows)-1]
	run := RunRecord{
		RunID:       runID,
		StartedAt:   started,
		FinishedAt:  time.Now().UTC(),
		RowsScored:  len(rows),
		RowsDropped: dropped,
		CrisisDays:  crisisDays,
		TestMode:    s.cfg.TestMode,
		LatestDate:  latest.Date,
		LatestScore: latest.RiskScore,
	}
	if err := s.deps.Repo.ReplaceRun(rows, run); err != nil {
		return nil, fmt.Errorf("failed to persist scored rows: %w", err)
	}

	decision := s.deps.Decisions.Evaluate(latest.RiskScore)
	decision.Context = s.marketContext(log)

	sig := decision.Signal(runID, latest.Date, domain.SourcePipeline)
	if err := s.deps.Archive.Append(sig); err != nil {
		return nil, fmt.Errorf("failed to archive signal: %w", err)
	}
	s.deps.Broadcaster.Send(sig)

	s.deps.Events.Emit("risk", events.NewSignalUpdatedData(sig))
	s.deps.Events.Emit("risk", &events.PipelineCompletedData{
		RunID:           runID,
		RowsScored:      run.RowsScored,
		RowsDropped:     run.RowsDropped,
		CrisisDays:      run.CrisisDays,
		LatestDate:      run.LatestDate,
		LatestScore:     run.LatestScore,
		TestMode:        run.TestMode,
		DurationSeconds: run.FinishedAt.Sub(run.StartedAt).Seconds(),
	})

	log.Info().
		Int("rows_scored", run.RowsScored).
		Int("rows_dropped", run.RowsDropped).
		Int("crisis_days", run.CrisisDays).
		Str("latest_date", run.LatestDate).
		Float64("latest_score", run.LatestScore).
		Str("level", string(decision.RiskLevel)).
		Msg("Pipeline run completed")
	return &run, nil
}

// marketContext computes the advisory index context. Failures degrade to
// a nil context, never a failed run.
func (s *Service) marketContext(log zerolog.Logger) *alert.MarketContext {
	closes, err := s.deps.Series.IndexCloses(contextLookbackDays)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load index closes for market context")
		return nil
	}
	return alert.ComputeMarketContext(s.cfg.IndexSymbol, closes)
}
