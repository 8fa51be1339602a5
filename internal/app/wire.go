package app

import (
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbtracker/internal/config"
	"github.com/alanyoungcy/arbtracker/internal/engine"
	"github.com/alanyoungcy/arbtracker/internal/feed"
	"github.com/alanyoungcy/arbtracker/internal/httpx"
	"github.com/alanyoungcy/arbtracker/internal/market"
	"github.com/alanyoungcy/arbtracker/internal/pipeline"
	"github.com/alanyoungcy/arbtracker/internal/platform/kalshi"
	"github.com/alanyoungcy/arbtracker/internal/platform/polymarket"
	"github.com/alanyoungcy/arbtracker/internal/refprice"
	"github.com/alanyoungcy/arbtracker/internal/server"
	"github.com/alanyoungcy/arbtracker/internal/server/handler"
	"github.com/alanyoungcy/arbtracker/internal/server/ws"
	"github.com/alanyoungcy/arbtracker/internal/settings"
)

// Deps carries every long-lived component the application runs.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Hub          *ws.Hub
	Server       *server.Server
}

// Wire builds the full dependency graph from configuration. The dashboard
// server and hub are nil when the server is disabled.
func Wire(cfg *config.Config, logger *slog.Logger) (*Deps, error) {
	store := settings.NewStore(cfg.Tracker.Monitored)
	if err := applyAssetOverrides(store, cfg.Assets); err != nil {
		return nil, err
	}

	resolver, err := market.NewResolver(cfg.Tracker.Timezone, cfg.Tracker.PrecloseMargin.Duration, logger)
	if err != nil {
		return nil, err
	}

	retry := httpx.DefaultPolicy(cfg.Kalshi.RetryBaseDelay.Duration)
	if cfg.Kalshi.RetryMaxAttempts > 0 {
		retry.MaxAttempts = cfg.Kalshi.RetryMaxAttempts
	}
	kalshiClient := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.RequestsPerSecond, retry)
	gammaClient := polymarket.NewGammaClient(cfg.Polymarket.GammaHost)

	refs := refprice.NewResolver(
		cfg.Polymarket.DataHost,
		cfg.RefPrice.BinanceHost,
		cfg.RefPrice.CryptoCompareHost,
		cfg.RefPrice.Timeout.Duration,
		logger,
	)

	kalshiStream := feed.NewKalshiStream(kalshiClient, cfg.Tracker.PollInterval.Duration, logger)
	polyStream := feed.NewPolymarketStream(gammaClient, cfg.Polymarket.WsHost, logger)

	eng := engine.New(engine.StakingParams{
		KellyFraction: cfg.Staking.KellyFraction,
		Confidence:    cfg.Staking.Confidence,
		MaxFraction:   cfg.Staking.MaxFraction,
	}, logger)

	deps := &Deps{}

	timers := pipeline.Timers{
		Discovery: cfg.Tracker.DiscoveryInterval.Duration,
		Evaluate:  cfg.Tracker.EvaluateInterval.Duration,
	}

	if cfg.Server.Enabled {
		// The hub is wired as a pipeline sink and needs the orchestrator as
		// monitorer; break the cycle by creating it first and letting the
		// orchestrator reference it as a sink.
		deps.Hub = ws.NewHub(nil, logger)
		deps.Orchestrator = pipeline.New(timers, resolver, kalshiClient, refs,
			kalshiStream, polyStream, eng, store, logger, deps.Hub)
		deps.Hub.SetMonitorer(deps.Orchestrator)

		deps.Server = server.NewServer(
			server.Config{
				Port:           cfg.Server.Port,
				CORSOrigins:    cfg.Server.CORSOrigins,
				APIKey:         cfg.Server.APIKey,
				RateLimitRPS:   cfg.Server.RateLimitRPS,
				RateLimitBurst: cfg.Server.RateLimitBurst,
			},
			server.Handlers{
				Health: handler.NewHealthHandler(logger),
				Assets: handler.NewAssetHandler(store, logger),
				Arb:    handler.NewArbHandler(deps.Orchestrator, logger),
			},
			deps.Hub,
			logger,
		)
	} else {
		deps.Orchestrator = pipeline.New(timers, resolver, kalshiClient, refs,
			kalshiStream, polyStream, eng, store, logger)
	}

	return deps, nil
}

// applyAssetOverrides merges deploy-time per-asset settings into the catalog.
func applyAssetOverrides(store *settings.Store, overrides map[string]config.AssetOverride) error {
	for symbol, ov := range overrides {
		current, ok := store.Get(symbol)
		if !ok {
			return fmt.Errorf("app: asset override for unknown symbol %q", symbol)
		}
		minGap, maxGap := current.MinGap, current.MaxGap
		if ov.MinGap != nil {
			minGap = *ov.MinGap
		}
		if ov.MaxGap != nil {
			maxGap = *ov.MaxGap
		}
		if err := store.SetGapBounds(symbol, minGap, maxGap); err != nil {
			return fmt.Errorf("app: asset override for %q: %w", symbol, err)
		}
	}
	return nil
}
