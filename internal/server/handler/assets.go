package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbtracker/internal/domain"
	"github.com/alanyoungcy/arbtracker/internal/settings"
)

// AssetHandler serves the asset catalog and runtime settings endpoints.
type AssetHandler struct {
	store  *settings.Store
	logger *slog.Logger
}

// NewAssetHandler creates an AssetHandler backed by the settings store.
func NewAssetHandler(store *settings.Store, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{store: store, logger: logHandler(logger, "assets")}
}

// assetView decorates the catalog entry with its monitored flag.
type assetView struct {
	domain.AssetConfig
	Monitored bool `json:"monitored"`
}

// ListAssets returns the full catalog with each asset's monitored flag.
// GET /api/assets
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	catalog := h.store.Catalog()
	out := make([]assetView, len(catalog))
	for i, a := range catalog {
		out[i] = assetView{AssetConfig: a, Monitored: h.store.IsMonitored(a.Symbol)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": out})
}

// UpdateGap sets an asset's gap window.
// PUT /api/assets/{symbol}/gap
func (h *AssetHandler) UpdateGap(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")

	var body struct {
		MinGap float64 `json:"min_gap"`
		MaxGap float64 `json:"max_gap"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SetGapBounds(symbol, body.MinGap, body.MaxGap); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrUnknownAsset) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	h.logger.Info("gap bounds updated",
		slog.String("asset", symbol),
		slog.Float64("min_gap", body.MinGap),
		slog.Float64("max_gap", body.MaxGap),
	)
	a, _ := h.store.Get(symbol)
	writeJSON(w, http.StatusOK, a)
}

// UpdateMonitored turns monitoring for an asset on or off.
// PUT /api/assets/{symbol}/monitored
func (h *AssetHandler) UpdateMonitored(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")

	var body struct {
		Monitored bool `json:"monitored"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SetMonitored(symbol, body.Monitored); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	h.logger.Info("monitoring updated",
		slog.String("asset", symbol),
		slog.Bool("monitored", body.Monitored),
	)
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "monitored": body.Monitored})
}
