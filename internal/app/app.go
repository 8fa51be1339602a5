// Package app provides the top-level application lifecycle for the arbitrage
// tracker. It wires together the venue clients, feeds, reference-price
// resolver, engine, orchestrator, and the optional dashboard server, and runs
// them until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbtracker/internal/config"
)

// shutdownTimeout bounds graceful HTTP shutdown after the run context ends.
const shutdownTimeout = 10 * time.Second

// App is the root application object.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and blocks until the context is cancelled or a
// component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting tracker",
		slog.Any("monitored", a.cfg.Tracker.Monitored),
		slog.Bool("server", a.cfg.Server.Enabled),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, err := Wire(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return deps.Orchestrator.Run(ctx) })

	if deps.Server != nil {
		g.Go(func() error { return deps.Hub.Run(ctx) })
		g.Go(func() error { return deps.Server.Start() })
		g.Go(func() error {
			<-ctx.Done()
			shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return deps.Server.Shutdown(shCtx)
		})
	}

	return g.Wait()
}
