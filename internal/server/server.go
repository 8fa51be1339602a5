// Package server exposes the dashboard HTTP and WebSocket API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/arbtracker/internal/server/handler"
	"github.com/alanyoungcy/arbtracker/internal/server/middleware"
	"github.com/alanyoungcy/arbtracker/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port           int
	CORSOrigins    []string
	APIKey         string  // if empty, authentication is disabled
	RateLimitRPS   float64 // per-client-IP request rate; zero disables limiting
	RateLimitBurst int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health *handler.HealthHandler
	Assets *handler.AssetHandler
	Arb    *handler.ArbHandler
}

// Server is the dashboard HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux. It
// wires up middleware (logging, CORS, auth, rate limiting) and attaches the
// WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Asset catalog and runtime settings.
	mux.HandleFunc("GET /api/assets", handlers.Assets.ListAssets)
	mux.HandleFunc("PUT /api/assets/{symbol}/gap", handlers.Assets.UpdateGap)
	mux.HandleFunc("PUT /api/assets/{symbol}/monitored", handlers.Assets.UpdateMonitored)

	// Arbitrage snapshots.
	mux.HandleFunc("GET /api/arbitrage", handlers.Arb.ListSnapshots)
	mux.HandleFunc("GET /api/arbitrage/{symbol}", handlers.Arb.GetSnapshot)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if cfg.RateLimitRPS > 0 {
		h = middleware.RateLimit(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
