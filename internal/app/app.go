// Package app orchestrates the long-running service: HTTP ingress, job
// dispatcher, and their shutdown order.
package app

import (
	"fmt"
	"log/slog"

	"github.com/codehawk/codehawk/internal/config"
	"github.com/codehawk/codehawk/internal/core"
	"github.com/codehawk/codehawk/internal/server"
)

// App holds the running service components.
type App struct {
	cfg        *config.Config
	server     *server.Server
	dispatcher core.Dispatcher
	logger     *slog.Logger
}

// NewApp assembles the application from its wired components.
func NewApp(cfg *config.Config, srv *server.Server, dispatcher core.Dispatcher, logger *slog.Logger) *App {
	return &App{
		cfg:        cfg,
		server:     srv,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting codehawk",
		"server_port", a.cfg.Server.Port,
		"llm_provider", a.cfg.AI.LLMProvider,
		"max_concurrent_runs", a.cfg.Workflow.MaxConcurrentRuns,
	)

	if err := a.server.Start(); err != nil {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop shuts the service down: the server first so no new work arrives,
// then the dispatcher so in-flight runs finish.
func (a *App) Stop() error {
	a.logger.Info("shutting down codehawk")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.dispatcher.Stop()

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("codehawk stopped")
	return nil
}
