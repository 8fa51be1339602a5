package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbtracker/internal/domain"
)

// SnapshotSource serves the last published evaluation per asset. The
// pipeline orchestrator satisfies it.
type SnapshotSource interface {
	Snapshot(symbol string) (domain.AssetSnapshot, error)
	Snapshots() []domain.AssetSnapshot
}

// ArbHandler serves the arbitrage snapshot endpoints.
type ArbHandler struct {
	source SnapshotSource
	logger *slog.Logger
}

// NewArbHandler creates an ArbHandler reading from the given source.
func NewArbHandler(source SnapshotSource, logger *slog.Logger) *ArbHandler {
	return &ArbHandler{source: source, logger: logHandler(logger, "arbitrage")}
}

// ListSnapshots returns the latest snapshot for every monitored asset.
// GET /api/arbitrage
func (h *ArbHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": h.source.Snapshots()})
}

// GetSnapshot returns the latest snapshot for a single asset.
// GET /api/arbitrage/{symbol}
func (h *ArbHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")

	snap, err := h.source.Snapshot(symbol)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownAsset) {
			writeError(w, http.StatusNotFound, "no snapshot for asset "+symbol)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
