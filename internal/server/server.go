// Package server provides the HTTP API: current risk state, signal
// history, the text dashboard, system status, manual job triggers and
// the WebSocket event stream.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/config"
	"github.com/aristath/liquidity-sentinel/internal/dashboard"
	"github.com/aristath/liquidity-sentinel/internal/database"
	"github.com/aristath/liquidity-sentinel/internal/events"
	"github.com/aristath/liquidity-sentinel/internal/history"
	"github.com/aristath/liquidity-sentinel/internal/risk"
	"github.com/aristath/liquidity-sentinel/internal/scheduler"
)

// Config holds server dependencies.
type Config struct {
	Log       zerolog.Logger
	Cfg       *config.Config
	MarketDB  *database.DB
	RiskDB    *database.DB
	Archive   *history.Archive
	RiskRepo  *risk.Repository
	Dashboard *dashboard.Renderer
	Bus       *events.Bus
	Scheduler *scheduler.Scheduler
	Pipeline  scheduler.Job
	Backup    scheduler.Job // nil when R2 is not configured
}

// Server is the HTTP server.
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	cfg         *config.Config
	marketDB    *database.DB
	riskDB      *database.DB
	archive     *history.Archive
	riskRepo    *risk.Repository
	dashboard   *dashboard.Renderer
	bus         *events.Bus
	sched       *scheduler.Scheduler
	pipelineJob scheduler.Job
	backupJob   scheduler.Job
	startedAt   time.Time
}

// New creates the HTTP server with routes and middleware configured.
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		cfg:         cfg.Cfg,
		marketDB:    cfg.MarketDB,
		riskDB:      cfg.RiskDB,
		archive:     cfg.Archive,
		riskRepo:    cfg.RiskRepo,
		dashboard:   cfg.Dashboard,
		bus:         cfg.Bus,
		sched:       cfg.Scheduler,
		pipelineJob: cfg.Pipeline,
		backupJob:   cfg.Backup,
		startedAt:   time.Now().UTC(),
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware.
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// The WebSocket stream is long-lived, so the request timeout only
		// wraps the plain request/response routes below.
		r.Get("/events/stream", s.handleEventsStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/risk", func(r chi.Router) {
				r.Get("/latest", s.handleRiskLatest)
				r.Get("/history", s.handleRiskHistory)
			})

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/latest", s.handleAlertsLatest)
				r.Get("/history", s.handleAlertsHistory)
			})

			r.Get("/dashboard", s.handleDashboard)

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.handleSystemStatus)
			})

			r.Route("/jobs", func(r chi.Router) {
				r.Post("/pipeline", s.handleTriggerPipeline)
				r.Post("/backup", s.handleTriggerBackup)
			})
		})
	})
}

// Start starts the HTTP server. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
