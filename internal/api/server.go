// Package api provides the HTTP API server for the mission-control dashboard.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/narvanalabs/mission-control/internal/actions"
	"github.com/narvanalabs/mission-control/internal/agents"
	"github.com/narvanalabs/mission-control/internal/api/handlers"
	"github.com/narvanalabs/mission-control/internal/api/health"
	"github.com/narvanalabs/mission-control/internal/api/middleware"
	"github.com/narvanalabs/mission-control/internal/attestation"
	"github.com/narvanalabs/mission-control/internal/cron"
	"github.com/narvanalabs/mission-control/internal/journal"
	"github.com/narvanalabs/mission-control/internal/logfeed"
	"github.com/narvanalabs/mission-control/internal/search"
	"github.com/narvanalabs/mission-control/internal/trading"
	"github.com/narvanalabs/mission-control/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// readTimeout bounds every read-only panel request.
const readTimeout = 30 * time.Second

// Sources holds the data sources behind each panel.
type Sources struct {
	Attestation handlers.AttestationReporter
	Logs        handlers.LogSource
	Journal     handlers.JournalReporter
	Roster      handlers.Roster
	Cron        handlers.CronReporter
	Search      handlers.Searcher
	Trading     handlers.PriceLog
	Actions     handlers.ActionRunner
	Probes      []health.Probe
}

// NewSources wires the file-backed sources described by cfg.
func NewSources(cfg *config.Config, logger *slog.Logger) Sources {
	roster := make([]agents.Agent, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		roster = append(roster, agents.Agent{ID: a.ID, Name: a.Name, Model: a.Model})
	}

	p := cfg.Paths
	return Sources{
		Attestation: attestation.NewLedger(p.AttestationLog, logger),
		Logs:        logfeed.NewSource(p.LogDir, logger),
		Journal:     journal.New(p.ExperimentsFile, logger),
		Roster:      agents.NewRoster(roster, p.AgentsDir, p.MemoryDir, logger),
		Cron:        cron.NewSource(p.CronJobsFile, p.GatewayConfig, logger),
		Search:      search.New(p.WorkspaceDir, cfg.Search.MaxFileSize, logger),
		Trading:     trading.NewLog(p.PriceLog, logger),
		Actions:     actions.NewRunner(cfg.Actions.Commands, cfg.Actions.Timeout, logger),
		Probes: []health.Probe{
			health.PathProbe{Label: "attestation_log", Path: p.AttestationLog},
			health.PathProbe{Label: "log_dir", Path: p.LogDir, Dir: true},
			health.PathProbe{Label: "experiments", Path: p.ExperimentsFile},
		},
	}
}

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	mu            sync.Mutex
	httpServer    *http.Server
	sources       Sources
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server over the given sources.
func NewServer(cfg *config.Config, sources Sources, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		sources: sources,
		config:  cfg,
		logger:  logger,
	}

	s.healthChecker = health.NewChecker(Version, sources.Probes...)

	s.setupRouter()
	return s
}

// actionTimeout leaves the runner's own timeout room to report first.
func (s *Server) actionTimeout() time.Duration {
	return s.config.Actions.Timeout + 10*time.Second
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))

	r.NotFound(handlers.WriteNotFound)

	r.With(chimiddleware.Timeout(readTimeout)).Get("/health", s.healthChecker.Handler())

	logLimits := handlers.Limits{Default: s.config.Logs.DefaultLimit, Max: s.config.Logs.MaxLimit}
	searchLimits := handlers.Limits{Default: s.config.Search.DefaultLimit}

	attestationHandler := handlers.NewAttestationHandler(s.sources.Attestation, s.logger)
	logHandler := handlers.NewLogHandler(s.sources.Logs, logLimits, s.logger)
	experimentHandler := handlers.NewExperimentHandler(s.sources.Journal, s.logger)
	agentHandler := handlers.NewAgentHandler(s.sources.Roster, s.logger)
	cronHandler := handlers.NewCronHandler(s.sources.Cron, s.logger)
	searchHandler := handlers.NewSearchHandler(s.sources.Search, searchLimits, s.logger)
	tradingHandler := handlers.NewTradingHandler(s.sources.Trading, s.logger)
	actionHandler := handlers.NewActionHandler(s.sources.Actions, s.logger)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(readTimeout))

			r.Get("/clawdsure", attestationHandler.Get)
			r.Get("/logs", logHandler.Get)
			r.Get("/usage", logHandler.Usage)
			r.Get("/experiments", experimentHandler.List)
			r.Get("/agents", agentHandler.List)
			r.Get("/memory", agentHandler.Memory)
			r.Get("/cron", cronHandler.List)
			r.Get("/search", searchHandler.Search)
			r.Get("/trading", tradingHandler.Get)
		})

		r.With(chimiddleware.Timeout(s.actionTimeout())).Post("/actions", actionHandler.Run)
	})

	s.router = r
}

// ListenAndServe serves until Shutdown is called. It returns nil after a
// graceful shutdown.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.actionTimeout() + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting API server", "addr", addr, "version", Version)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Name identifies the server during shutdown.
func (s *Server) Name() string {
	return "api"
}

// Shutdown gracefully shuts down the HTTP server, waiting at most the
// configured shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
