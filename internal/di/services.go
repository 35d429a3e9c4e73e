package di

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/alert"
	"github.com/aristath/liquidity-sentinel/internal/backup"
	"github.com/aristath/liquidity-sentinel/internal/config"
	"github.com/aristath/liquidity-sentinel/internal/dashboard"
	"github.com/aristath/liquidity-sentinel/internal/display"
	"github.com/aristath/liquidity-sentinel/internal/events"
	"github.com/aristath/liquidity-sentinel/internal/features"
	"github.com/aristath/liquidity-sentinel/internal/marketdata"
	"github.com/aristath/liquidity-sentinel/internal/risk"
)

// InitializeServices creates all services and stores them in the
// container. Requires databases and repositories to be initialized.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// ==========================================
	// STEP 1: Event bus and manager
	// ==========================================

	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	// ==========================================
	// STEP 2: Market data ingest
	// ==========================================

	container.YahooClient = marketdata.NewClient(log)
	container.Ingest = marketdata.NewService(
		container.YahooClient,
		container.SeriesRepo,
		marketdata.Config{
			Securities:  cfg.Securities,
			IndexSymbol: cfg.IndexSymbol,
			Range:       cfg.YahooRange,
		},
		log,
	)

	// ==========================================
	// STEP 3: Feature engines, labeling, scoring
	// ==========================================

	container.Window = features.NewWindowEngine(cfg.RollingWindowDays)
	container.Derived = features.NewDerivedEngine(cfg.ShortWindowDays, cfg.IndexMomentumDays)

	// The pipeline and the monitor each get their own randomness source:
	// monitor ticks run on the cron goroutine and must not race pipeline
	// scoring. Seed 0 means time-seeded (non-reproducible) runs.
	pipelineRand := newRand(cfg.RandomSeed, 0)
	container.MonitorRand = newRand(cfg.RandomSeed, 1)

	container.Labeler = risk.NewLabeler(cfg.CrisisDates, cfg.TestMode, time.Now, pipelineRand)
	container.Scorer = risk.NewScorer(
		cfg.TestMode,
		cfg.ScoreCutoffDate,
		cfg.CrisisSampleFraction,
		cfg.Securities,
		pipelineRand,
	)

	// ==========================================
	// STEP 4: Alerting, display, dashboard
	// ==========================================

	container.Decisions = alert.NewEngine(cfg.RedThreshold, cfg.AmberThreshold, cfg.SecurityPairLabel())

	broadcaster, err := display.NewBroadcaster(cfg.DisplayUDPAddr, log)
	if err != nil {
		return fmt.Errorf("failed to initialize display broadcaster: %w", err)
	}
	container.Broadcaster = broadcaster

	container.Dashboard = dashboard.NewRenderer(container.RiskRepo, cfg.Securities)

	// ==========================================
	// STEP 5: Risk pipeline
	// ==========================================

	container.Pipeline = risk.NewService(
		risk.ServiceDeps{
			Series:      container.SeriesRepo,
			Window:      container.Window,
			Derived:     container.Derived,
			Labeler:     container.Labeler,
			Scorer:      container.Scorer,
			Repo:        container.RiskRepo,
			Decisions:   container.Decisions,
			Archive:     container.Archive,
			Broadcaster: container.Broadcaster,
			Events:      container.EventManager,
		},
		risk.ServiceConfig{
			Securities:  cfg.Securities,
			IndexSymbol: cfg.IndexSymbol,
			ShortWindow: cfg.ShortWindowDays,
			TestMode:    cfg.TestMode,
		},
		log,
	)

	// ==========================================
	// STEP 6: Cloud backup (optional - only if configured)
	// ==========================================

	if cfg.R2.Configured() {
		r2Client, err := backup.NewR2Client(
			cfg.R2.AccountID,
			cfg.R2.AccessKeyID,
			cfg.R2.SecretAccessKey,
			cfg.R2.Bucket,
			log,
		)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize R2 client - cloud backup disabled")
		} else {
			container.R2Client = r2Client
			container.BackupService = backup.NewService(
				r2Client,
				[]backup.Snapshotter{container.MarketDB, container.RiskDB, container.Archive},
				cfg.DataDir,
				log,
			)
			log.Info().Msg("R2 cloud backup initialized")
		}
	} else {
		log.Debug().Msg("R2 credentials not configured - cloud backup disabled")
	}

	log.Info().Msg("All services initialized")

	return nil
}

// newRand builds a randomness source from the configured seed. Seed 0
// yields a time-seeded source; otherwise the offset keeps multiple
// deterministic streams distinct from each other.
func newRand(seed, offset int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewSource(time.Now().UnixNano() + offset))
	}
	return rand.New(rand.NewSource(seed + offset))
}
