// Package pipeline wires discovery, the two venue feeds, reference-price
// resolution and the arbitrage engine into the tracker's run loop.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbtracker/internal/domain"
	"github.com/alanyoungcy/arbtracker/internal/engine"
	"github.com/alanyoungcy/arbtracker/internal/market"
	"github.com/alanyoungcy/arbtracker/internal/settings"
)

// Sink receives every published per-asset snapshot. Publish must not block;
// slow consumers drop rather than stall the cycle.
type Sink interface {
	Publish(snapshot domain.AssetSnapshot)
}

// kalshiFeed is the slice of the Kalshi polling stream the orchestrator
// drives.
type kalshiFeed interface {
	Track(asset, eventTicker string)
	Untrack(asset string)
	Latest(asset string) []domain.StrikeQuote
	Run(ctx context.Context) error
}

// polyFeed is the slice of the Polymarket WebSocket stream the orchestrator
// drives.
type polyFeed interface {
	Track(ctx context.Context, asset, slug string) error
	Untrack(asset string)
	Latest(asset string) map[string]domain.Quote
	Run(ctx context.Context) error
}

// refResolver resolves the price-to-beat for the current hour.
type refResolver interface {
	Resolve(ctx context.Context, asset domain.AssetConfig) domain.ReferencePrice
}

// Timers groups the orchestrator's cycle intervals.
type Timers struct {
	Discovery time.Duration
	Evaluate  time.Duration
}

// Orchestrator owns the tracker's two cycles: a slow discovery pass that
// re-resolves venue identifiers and retargets the feeds, and a fast evaluate
// pass that reads the latest quotes and publishes a snapshot per asset.
type Orchestrator struct {
	timers   Timers
	resolver *market.Resolver
	disc     market.Discoverer
	refs     refResolver
	kalshi   kalshiFeed
	poly     polyFeed
	engine   *engine.Engine
	settings *settings.Store
	sinks    []Sink
	logger   *slog.Logger

	// discoverMu serializes discovery passes: the loop's timers and dashboard
	// Monitor calls run on different goroutines, and a pair must never be
	// resolved twice concurrently.
	discoverMu sync.Mutex

	mu        sync.RWMutex
	pairs     map[string]domain.MarketPair
	snapshots map[string]domain.AssetSnapshot
}

// monitorTimeout bounds the discovery pass triggered by a dashboard Monitor
// call, which otherwise inherits the connection's unbounded context.
const monitorTimeout = 15 * time.Second

// New builds an Orchestrator. Sinks are optional.
func New(timers Timers, resolver *market.Resolver, disc market.Discoverer, refs refResolver, kalshiStream kalshiFeed, polyStream polyFeed, eng *engine.Engine, store *settings.Store, logger *slog.Logger, sinks ...Sink) *Orchestrator {
	return &Orchestrator{
		timers:    timers,
		resolver:  resolver,
		disc:      disc,
		refs:      refs,
		kalshi:    kalshiStream,
		poly:      polyStream,
		engine:    eng,
		settings:  store,
		sinks:     sinks,
		logger:    logger.With(slog.String("component", "orchestrator")),
		pairs:     make(map[string]domain.MarketPair),
		snapshots: make(map[string]domain.AssetSnapshot),
	}
}

// Run starts both feeds and the cycle loop, blocking until ctx is cancelled
// or a feed fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.kalshi.Run(ctx) })
	g.Go(func() error { return o.poly.Run(ctx) })
	g.Go(func() error { return o.loop(ctx) })
	return g.Wait()
}

func (o *Orchestrator) loop(ctx context.Context) error {
	o.Discover(ctx)

	discovery := time.NewTicker(o.timers.Discovery)
	defer discovery.Stop()
	evaluate := time.NewTicker(o.timers.Evaluate)
	defer evaluate.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-discovery.C:
			o.Discover(ctx)
		case <-evaluate.C:
			// The discovery timer alone would trail the hour boundary by up
			// to its full interval, serving a closed market meanwhile.
			if o.needsRollover() {
				o.Discover(ctx)
			}
			o.Evaluate(ctx)
		}
	}
}

// Discover re-resolves the market pair for every monitored asset and points
// both feeds at the result. Assets no longer monitored are untracked. Passes
// are serialized; a concurrent call waits for the running one to finish.
func (o *Orchestrator) Discover(ctx context.Context) {
	o.discoverMu.Lock()
	defer o.discoverMu.Unlock()

	offset := 0
	if o.resolver.InPreclose() {
		offset = 1
	}

	monitored := o.settings.Monitored()
	active := make(map[string]bool, len(monitored))

	for _, asset := range monitored {
		active[asset.Symbol] = true
		pair := o.resolver.ResolvePair(ctx, asset, offset, o.disc)

		o.mu.Lock()
		o.pairs[asset.Symbol] = pair
		o.mu.Unlock()

		o.kalshi.Track(asset.Symbol, pair.KalshiTicker)
		if err := o.poly.Track(ctx, asset.Symbol, pair.PolymarketSlug); err != nil {
			o.logger.Warn("polymarket track failed",
				slog.String("asset", asset.Symbol),
				slog.String("slug", pair.PolymarketSlug),
				slog.String("error", err.Error()))
		}

		o.logger.Info("market pair resolved",
			slog.String("asset", asset.Symbol),
			slog.String("kalshi_ticker", pair.KalshiTicker),
			slog.Bool("discovered", pair.Discovered),
			slog.String("polymarket_slug", pair.PolymarketSlug))
	}

	o.mu.Lock()
	for symbol := range o.pairs {
		if !active[symbol] {
			delete(o.pairs, symbol)
			delete(o.snapshots, symbol)
			o.kalshi.Untrack(symbol)
			o.poly.Untrack(symbol)
		}
	}
	o.mu.Unlock()
}

// needsRollover reports whether any monitored asset's pair no longer targets
// the tradeable window, or is missing entirely.
func (o *Orchestrator) needsRollover() bool {
	expected := o.resolver.NextTradeableWindow()

	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, asset := range o.settings.Monitored() {
		pair, ok := o.pairs[asset.Symbol]
		if !ok || !pair.Window.Start.Equal(expected.Start) {
			return true
		}
	}
	return false
}

// Evaluate runs one engine pass per monitored asset and publishes the
// results. An asset with no Kalshi quotes or an unknown reference price is
// reported but not evaluated this cycle.
func (o *Orchestrator) Evaluate(ctx context.Context) {
	for _, asset := range o.settings.Monitored() {
		o.mu.RLock()
		pair, ok := o.pairs[asset.Symbol]
		o.mu.RUnlock()
		if !ok {
			continue
		}

		snapshot := domain.AssetSnapshot{
			Asset:     asset.Symbol,
			Timestamp: o.resolver.Now(),
			Kalshi: domain.KalshiView{
				EventTicker: pair.KalshiTicker,
				URL:         pair.KalshiURL,
			},
			Polymarket: domain.PolymarketView{
				Slug: pair.PolymarketSlug,
				URL:  pair.PolymarketURL,
			},
		}

		ladder := o.kalshi.Latest(asset.Symbol)
		if len(ladder) == 0 {
			snapshot.Errors = append(snapshot.Errors, "no kalshi quotes yet")
			o.publish(snapshot)
			continue
		}
		snapshot.Kalshi.Markets = ladder

		ref := o.refs.Resolve(ctx, asset)
		snapshot.ReferencePrice = ref
		if !ref.Known() {
			snapshot.Errors = append(snapshot.Errors, "reference price unavailable")
			o.publish(snapshot)
			continue
		}

		polyQuotes := o.poly.Latest(asset.Symbol)
		snapshot.Polymarket.Prices = polyQuotes

		eval := o.engine.Evaluate(asset, ref, ladder, polyQuotes)
		snapshot.Checks = eval.Checks
		snapshot.Opportunities = eval.Opportunities
		snapshot.Errors = append(snapshot.Errors, eval.Diagnostics...)

		o.publish(snapshot)
	}
}

func (o *Orchestrator) publish(snapshot domain.AssetSnapshot) {
	o.mu.Lock()
	o.snapshots[snapshot.Asset] = snapshot
	o.mu.Unlock()

	for _, sink := range o.sinks {
		sink.Publish(snapshot)
	}
}

// Snapshot returns the last published snapshot for the asset.
func (o *Orchestrator) Snapshot(symbol string) (domain.AssetSnapshot, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.snapshots[symbol]
	if !ok {
		return domain.AssetSnapshot{}, fmt.Errorf("pipeline: %q: %w", symbol, domain.ErrUnknownAsset)
	}
	return s, nil
}

// Snapshots returns the last published snapshot for every monitored asset.
func (o *Orchestrator) Snapshots() []domain.AssetSnapshot {
	monitored := o.settings.Monitored()

	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]domain.AssetSnapshot, 0, len(monitored))
	for _, asset := range monitored {
		if s, ok := o.snapshots[asset.Symbol]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Monitor adds an asset to the monitored set and resolves its pair
// immediately, so a dashboard subscription starts serving data without
// waiting for the next discovery tick.
func (o *Orchestrator) Monitor(ctx context.Context, symbol string) error {
	if err := o.settings.SetMonitored(symbol, true); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, monitorTimeout)
	defer cancel()
	o.Discover(ctx)
	return nil
}
