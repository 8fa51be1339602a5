package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/arbtracker/internal/domain"
	"github.com/alanyoungcy/arbtracker/internal/server/handler"
	"github.com/alanyoungcy/arbtracker/internal/settings"
)

type emptySnapshots struct{}

func (emptySnapshots) Snapshot(symbol string) (domain.AssetSnapshot, error) {
	return domain.AssetSnapshot{}, domain.ErrUnknownAsset
}
func (emptySnapshots) Snapshots() []domain.AssetSnapshot { return nil }

func newTestServer(cfg Config) *Server {
	logger := slog.New(slog.DiscardHandler)
	return NewServer(cfg, Handlers{
		Health: handler.NewHealthHandler(logger),
		Assets: handler.NewAssetHandler(settings.NewStore(nil), logger),
		Arb:    handler.NewArbHandler(emptySnapshots{}, logger),
	}, nil, logger)
}

func TestServer_RateLimitInChain(t *testing.T) {
	s := newTestServer(Config{Port: 8000, RateLimitRPS: 1, RateLimitBurst: 1})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "10.0.0.1:50000"

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestServer_RateLimitDisabledByZeroRPS(t *testing.T) {
	s := newTestServer(Config{Port: 8000})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "10.0.0.1:50000"
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		s.httpServer.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
