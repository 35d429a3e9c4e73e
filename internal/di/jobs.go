package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/config"
	"github.com/aristath/liquidity-sentinel/internal/scheduler"
)

// RegisterJobs creates all scheduled job instances. Scheduling itself
// happens in main; the instances are also used for manual API triggers,
// so every trigger path emits the same lifecycle events.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{}

	// Pipeline job: refresh the market series, then run the full
	// feature/score/signal pass.
	pipelineJob := scheduler.NewPipelineJob(container.Ingest, container.Pipeline, true, log)
	instances.Pipeline = scheduler.WithEvents(pipelineJob, container.EventManager)

	// Monitor job stays unwrapped: at a seconds cadence its lifecycle
	// events would drown the stream. It emits signal events itself.
	instances.Monitor = scheduler.NewMonitorJob(
		container.RiskRepo,
		container.Decisions,
		container.Archive,
		container.Broadcaster,
		container.EventManager,
		container.MonitorRand,
		log,
	)

	// History cleanup job
	cleanupJob := scheduler.NewHistoryCleanupJob(container.Archive, cfg.HistoryRetentionDays, log)
	instances.HistoryCleanup = scheduler.WithEvents(cleanupJob, container.EventManager)

	// Backup job (optional - only if R2 is configured)
	if container.BackupService != nil {
		backupJob := scheduler.NewBackupJob(container.BackupService, cfg.R2.RetentionDays, log)
		instances.Backup = scheduler.WithEvents(backupJob, container.EventManager)
		log.Info().Msg("Backup job registered")
	} else {
		log.Debug().Msg("Backup service not available - backup job not registered")
	}

	log.Info().Msg("All jobs registered")

	return instances, nil
}
