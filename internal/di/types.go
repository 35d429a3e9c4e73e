// Package di provides dependency injection wiring and initialization.
//
// The Container is the single source of truth for all service instances.
// It is created by Wire() and handed to the HTTP server and the
// scheduler for access to services.
package di

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/alert"
	"github.com/aristath/liquidity-sentinel/internal/backup"
	"github.com/aristath/liquidity-sentinel/internal/dashboard"
	"github.com/aristath/liquidity-sentinel/internal/database"
	"github.com/aristath/liquidity-sentinel/internal/display"
	"github.com/aristath/liquidity-sentinel/internal/events"
	"github.com/aristath/liquidity-sentinel/internal/features"
	"github.com/aristath/liquidity-sentinel/internal/history"
	"github.com/aristath/liquidity-sentinel/internal/marketdata"
	"github.com/aristath/liquidity-sentinel/internal/risk"
	"github.com/aristath/liquidity-sentinel/internal/scheduler"
	"github.com/aristath/liquidity-sentinel/internal/series"
)

// Container holds all dependencies for the application.
//
// Architecture:
//   - Databases: market.db (ingested series), risk.db (scored features and
//     runs), signal_history.db (append-only signal archive on its own driver)
//   - Repositories: data access over the market and risk databases
//   - Services: ingest, feature computation, labeling/scoring, the pipeline
//     itself, alert evaluation, dashboard rendering, display broadcasting
//     and cloud backup
//
// All dependencies are injected via constructor injection.
type Container struct {
	// Databases
	MarketDB *database.DB     // Ingested daily series (volumes, index closes)
	RiskDB   *database.DB     // Scored feature rows and pipeline runs
	Archive  *history.Archive // Append-only signal history (separate driver)

	// Clients
	YahooClient *marketdata.Client
	R2Client    *backup.R2Client // nil when R2 is not configured

	// Repositories
	SeriesRepo *series.Repository
	RiskRepo   *risk.Repository

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Services
	Ingest        *marketdata.Service
	Window        *features.WindowEngine
	Derived       *features.DerivedEngine
	Labeler       *risk.Labeler
	Scorer        *risk.Scorer
	Pipeline      *risk.Service
	Decisions     *alert.Engine
	Dashboard     *dashboard.Renderer
	Broadcaster   *display.Broadcaster
	BackupService *backup.Service // nil when R2 is not configured

	// MonitorRand feeds the live monitor's random walk. It is a separate
	// source from the pipeline's so the monitor tick (cron goroutine)
	// never races the pipeline's scorer.
	MonitorRand *rand.Rand
}

// JobInstances holds references to all registered jobs for manual
// triggering. Backup is nil when R2 is not configured.
type JobInstances struct {
	Pipeline       scheduler.Job
	Monitor        scheduler.Job
	Backup         scheduler.Job
	HistoryCleanup scheduler.Job
}

// Close releases everything the container holds open, in reverse
// dependency order. Safe to call on a partially initialized container.
func (c *Container) Close(log zerolog.Logger) {
	if c.Broadcaster != nil {
		if err := c.Broadcaster.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close display broadcaster")
		}
	}
	if c.Archive != nil {
		if err := c.Archive.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close signal history database")
		}
	}
	if c.RiskDB != nil {
		if err := c.RiskDB.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close risk database")
		}
	}
	if c.MarketDB != nil {
		if err := c.MarketDB.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close market database")
		}
	}
}
