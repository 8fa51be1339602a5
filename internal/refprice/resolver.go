package refprice

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alanyoungcy/arbtracker/internal/domain"
)

const fetchTimeout = 5 * time.Second

// Resolver finds the price-to-beat for each asset's current trading hour,
// walking an ordered list of sources until one answers with a positive
// price. Results are cached per asset for the remainder of the hour: the
// open of an hourly candle does not change once the hour has started.
type Resolver struct {
	sources []Source
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	cache    map[string]domain.ReferencePrice
	lastHour time.Time
}

// NewResolver builds a Resolver with the default source order: the
// Polymarket data API first (it mirrors how contracts settle), then Binance
// klines, then the CryptoCompare Binance mirror.
func NewResolver(polyDataHost, binanceHost, cryptoCompareHost string, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = fetchTimeout
	}
	client := &http.Client{Timeout: timeout}
	r := New([]Source{
		&PolymarketDataSource{Host: polyDataHost, Client: client},
		&BinanceSource{Host: binanceHost, Client: client},
		&CryptoCompareSource{Host: cryptoCompareHost, Client: client},
	}, logger)
	r.timeout = timeout
	return r
}

// New builds a Resolver over an explicit source chain.
func New(sources []Source, logger *slog.Logger) *Resolver {
	return &Resolver{
		sources: sources,
		timeout: fetchTimeout,
		logger:  logger.With(slog.String("component", "refprice")),
		now:     time.Now,
		cache:   make(map[string]domain.ReferencePrice),
	}
}

// WithClock overrides the wall clock, for tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve returns the reference price for the asset's current hour. On a
// cache miss every source is tried in order; if none produces a positive
// price the returned value is the unknown sentinel, which is not cached so
// the next call retries.
func (r *Resolver) Resolve(ctx context.Context, asset domain.AssetConfig) domain.ReferencePrice {
	now := r.now().UTC()
	hourStart := now.Truncate(time.Hour)

	r.mu.Lock()
	if !hourStart.Equal(r.lastHour) {
		// New hour, new candle opens everywhere. Drop everything.
		r.cache = make(map[string]domain.ReferencePrice)
		r.lastHour = hourStart
	}
	if cached, ok := r.cache[asset.Symbol]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	for _, src := range r.sources {
		fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
		price, err := src.Fetch(fetchCtx, asset, hourStart)
		cancel()
		if err != nil {
			r.logger.Warn("reference price source failed",
				slog.String("asset", asset.Symbol),
				slog.String("source", src.Name()),
				slog.String("error", err.Error()))
			continue
		}
		if price <= 0 {
			continue
		}

		resolved := domain.ReferencePrice{
			Asset:      asset.Symbol,
			Value:      price,
			Source:     src.Name(),
			ResolvedAt: now,
		}
		r.mu.Lock()
		// Another goroutine may have raced us past the hour boundary;
		// only cache into the hour we resolved for.
		if hourStart.Equal(r.lastHour) {
			r.cache[asset.Symbol] = resolved
		}
		r.mu.Unlock()

		r.logger.Info("reference price resolved",
			slog.String("asset", asset.Symbol),
			slog.Float64("price", price),
			slog.String("source", src.Name()))
		return resolved
	}

	r.logger.Error("all reference price sources failed", slog.String("asset", asset.Symbol))
	return domain.ReferencePrice{
		Asset:      asset.Symbol,
		Source:     domain.ReferencePriceSourceUnknown,
		ResolvedAt: now,
	}
}
