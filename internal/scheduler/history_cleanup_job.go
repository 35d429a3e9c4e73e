package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/history"
)

// HistoryCleanupJob trims the signal archive to the retention window.
// The monitor loop appends a signal every couple of seconds in test
// mode, so without cleanup the archive grows without bound.
type HistoryCleanupJob struct {
	archive       *history.Archive
	retentionDays int
	log           zerolog.Logger
}

// NewHistoryCleanupJob creates the cleanup job. retentionDays <= 0
// disables deletion.
func NewHistoryCleanupJob(archive *history.Archive, retentionDays int, log zerolog.Logger) *HistoryCleanupJob {
	return &HistoryCleanupJob{
		archive:       archive,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "history_cleanup").Logger(),
	}
}

// Name returns the job name.
func (j *HistoryCleanupJob) Name() string {
	return "history_cleanup"
}

// Run deletes archived signals older than the retention window.
func (j *HistoryCleanupJob) Run() error {
	if j.retentionDays <= 0 {
		j.log.Debug().Msg("Retention disabled, keeping all signals")
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)
	deleted, err := j.archive.DeleteOlderThan(cutoff)
	if err != nil {
		return fmt.Errorf("history cleanup failed: %w", err)
	}

	j.log.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Signal history trimmed")
	return nil
}
