// Package main provides the entry point for the mission-control API server.
package main

import (
	"context"
	"os"

	"github.com/narvanalabs/mission-control/internal/actions"
	"github.com/narvanalabs/mission-control/internal/api"
	"github.com/narvanalabs/mission-control/internal/shutdown"
	"github.com/narvanalabs/mission-control/pkg/config"
	"github.com/narvanalabs/mission-control/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.ParseLevel(cfg.LogLevel), true)

	// Wire file-backed sources. The runner is kept so shutdown can wait for
	// running actions.
	runner := actions.NewRunner(cfg.Actions.Commands, cfg.Actions.Timeout, log.Logger)
	sources := api.NewSources(cfg, log.Logger)
	sources.Actions = runner

	server := api.NewServer(cfg, sources, log.Logger)

	// Stop the server first, then drain actions.
	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coordinator.Register(runner)
	coordinator.Register(server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		err := server.ListenAndServe()
		if err != nil {
			log.Error("server error", "error", err)
		}
		serveErr <- err
		cancel()
	}()

	log.Info("starting mission control",
		"host", cfg.APIHost,
		"port", cfg.APIPort,
		"workspace", cfg.Paths.WorkspaceDir,
		"actions", runner.Names(),
	)

	coordinator.Run(ctx)

	select {
	case err := <-serveErr:
		if err != nil {
			os.Exit(1)
		}
	default:
	}

	log.Info("server stopped")
	os.Exit(coordinator.ExitCode())
}
