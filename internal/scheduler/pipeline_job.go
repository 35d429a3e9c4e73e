package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/marketdata"
	"github.com/aristath/liquidity-sentinel/internal/risk"
)

// fetchTimeout bounds the market data refresh; Yahoo occasionally hangs.
const fetchTimeout = 5 * time.Minute

// PipelineJob refreshes market data (when fetching is enabled) and runs
// the full risk pipeline. Scheduled after LSE close on weekdays, also
// triggered manually through the API.
type PipelineJob struct {
	ingest   *marketdata.Service
	pipeline *risk.Service
	fetch    bool
	log      zerolog.Logger
}

// NewPipelineJob creates the pipeline job. When fetch is false the job
// scores whatever the market store already holds.
func NewPipelineJob(ingest *marketdata.Service, pipeline *risk.Service, fetch bool, log zerolog.Logger) *PipelineJob {
	return &PipelineJob{
		ingest:   ingest,
		pipeline: pipeline,
		fetch:    fetch,
		log:      log.With().Str("job", "pipeline").Logger(),
	}
}

// Name returns the job name.
func (j *PipelineJob) Name() string {
	return "pipeline"
}

// Run executes one ingest-then-score pass.
func (j *PipelineJob) Run() error {
	if j.fetch {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		days, err := j.ingest.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("market data refresh failed: %w", err)
		}
		j.log.Info().Int("days", days).Msg("Market data refreshed")
	}

	run, err := j.pipeline.Run()
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	j.log.Info().
		Str("run_id", run.RunID).
		Str("latest_date", run.LatestDate).
		Float64("latest_score", run.LatestScore).
		Msg("Scheduled pipeline run finished")
	return nil
}
