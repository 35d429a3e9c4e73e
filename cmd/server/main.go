// Package main is the entry point for the Liquidity Sentinel monitoring
// system. It ingests daily market data for a monitored security pair and
// its index, computes liquidity features, scores crisis risk, and serves
// the resulting signals over an HTTP API, a WebSocket event stream and
// an optional UDP ticker display.
//
// The application follows clean architecture principles:
// - Domain layer is pure (no infrastructure dependencies)
// - Dependency injection via DI container
// - Repository pattern for data access
// - Service layer for business logic
// - HTTP handlers for API endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/liquidity-sentinel/internal/config"
	"github.com/aristath/liquidity-sentinel/internal/di"
	"github.com/aristath/liquidity-sentinel/internal/scheduler"
	"github.com/aristath/liquidity-sentinel/internal/server"
	"github.com/aristath/liquidity-sentinel/internal/version"
	"github.com/aristath/liquidity-sentinel/pkg/logger"
)

const (
	// backupSchedule runs the nightly backup at 02:00, after the
	// scheduled pipeline run has finished and the databases are quiet.
	backupSchedule = "0 0 2 * * *"

	// cleanupSchedule trims the signal archive weekly, outside trading
	// hours.
	cleanupSchedule = "0 0 3 * * SUN"

	// startupFetchTimeout bounds the optional on-boot market refresh.
	startupFetchTimeout = 5 * time.Minute
)

// main orchestrates the system startup sequence:
//  1. Load configuration from environment variables
//  2. Initialize logging
//  3. Wire all dependencies via the DI container (databases,
//     repositories, services, jobs)
//  4. Register scheduled jobs (pipeline, monitor, backup, cleanup)
//  5. Start the HTTP server
//  6. Run optional on-boot ingest/pipeline
//  7. Wait for a shutdown signal and stop gracefully
//
// The application uses a 3-database architecture:
// - market.db: ingested daily series (volumes, index closes)
// - risk.db: scored feature rows and pipeline run records
// - signal_history.db: append-only signal archive
func main() {
	// Load configuration first to get the log level
	cfg, err := config.Load()
	if err != nil {
		// Use a fallback logger so the configuration error is still logged
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})

	log.Info().
		Str("version", version.Version).
		Bool("test_mode", cfg.TestMode).
		Msg("Starting Liquidity Sentinel")

	// Wire all dependencies using the DI container
	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close(log)

	// Register scheduled jobs. The monitor only runs in test mode; the
	// backup only when R2 is configured.
	sched := scheduler.New(log)

	if err := sched.AddJob(cfg.PipelineCron, jobs.Pipeline); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.PipelineCron).Msg("Failed to schedule pipeline job")
	}
	if cfg.TestMode {
		monitorSchedule := fmt.Sprintf("@every %ds", cfg.MonitorIntervalSeconds)
		if err := sched.AddJob(monitorSchedule, jobs.Monitor); err != nil {
			log.Fatal().Err(err).Str("schedule", monitorSchedule).Msg("Failed to schedule monitor job")
		}
	}
	if err := sched.AddJob(cleanupSchedule, jobs.HistoryCleanup); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule history cleanup job")
	}
	if jobs.Backup != nil {
		if err := sched.AddJob(backupSchedule, jobs.Backup); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule backup job")
		}
	}

	sched.Start()

	// Initialize the HTTP server with everything the handlers need
	srv := server.New(server.Config{
		Log:       log,
		Cfg:       cfg,
		MarketDB:  container.MarketDB,
		RiskDB:    container.RiskDB,
		Archive:   container.Archive,
		RiskRepo:  container.RiskRepo,
		Dashboard: container.Dashboard,
		Bus:       container.EventBus,
		Scheduler: sched,
		Pipeline:  jobs.Pipeline,
		Backup:    jobs.Backup,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Optional on-boot work. A pipeline run always refreshes the series
	// first, so PIPELINE_ON_START subsumes FETCH_ON_START.
	if cfg.PipelineOnStart {
		go func() {
			if err := sched.RunNow(jobs.Pipeline); err != nil {
				log.Error().Err(err).Msg("Startup pipeline run failed")
			}
		}()
	} else if cfg.FetchOnStart {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), startupFetchTimeout)
			defer cancel()
			days, err := container.Ingest.Refresh(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Startup market refresh failed")
				return
			}
			log.Info().Int("days", days).Msg("Startup market refresh finished")
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Stop the scheduler first so no new job starts mid-shutdown;
	// Stop waits for running jobs to finish.
	sched.Stop()
	log.Info().Msg("Scheduler stopped")

	// Give the HTTP server up to 10 seconds to finish in-flight requests
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
