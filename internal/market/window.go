// Package market translates wall-clock time into each venue's hourly market
// identifiers. Kalshi names hourly markets by their close hour in a
// date+hour-24 encoded series ticker; Polymarket names the same market by its
// open hour in a month-name 12-hour slug. The one-hour offset between the two
// conventions is handled in ResolvePair and must not be reimplemented by
// callers.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/arbtracker/internal/domain"
	"github.com/alanyoungcy/arbtracker/internal/platform/kalshi"
)

// defaultPrecloseMargin is how long before the hour boundary both venues stop
// accepting orders for the closing market, so discovery targets the next
// hour.
const defaultPrecloseMargin = 5 * time.Minute

var monthAbbr = [...]string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

var monthFull = [...]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// kalshiURLSlugs maps asset symbols to the human-readable market page slug.
var kalshiURLSlugs = map[string]string{
	"BTC": "bitcoin-price-abovebelow",
	"ETH": "ethereum-price-abovebelow",
	"XRP": "xrp-price-abovebelow",
	"SOL": "solana-price-abovebelow",
}

// Discoverer lists the markets under a date-level Kalshi event ticker. The
// Kalshi REST client satisfies it.
type Discoverer interface {
	MarketsByEvent(ctx context.Context, eventTicker string) ([]kalshi.Market, error)
}

// Resolver computes hourly market windows and venue identifiers in a fixed
// timezone. The zero offset window is the current wall-clock hour.
type Resolver struct {
	loc      *time.Location
	preclose time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewResolver creates a Resolver for the given IANA timezone name. A
// non-positive precloseMargin falls back to the default five minutes.
func NewResolver(timezone string, precloseMargin time.Duration, logger *slog.Logger) (*Resolver, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("market: load timezone %q: %w", timezone, err)
	}
	if precloseMargin <= 0 {
		precloseMargin = defaultPrecloseMargin
	}
	return &Resolver{
		loc:      loc,
		preclose: precloseMargin,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "market_resolver")),
	}, nil
}

// WithClock replaces the time source. Used by tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Now returns the current time in the resolver's timezone.
func (r *Resolver) Now() time.Time {
	return r.now().In(r.loc)
}

// TargetWindow returns the hour window at the given offset from the current
// hour: start is floored to the hour, end is exactly one hour later. Pure
// apart from the clock read; no I/O.
func (r *Resolver) TargetWindow(offset int) domain.HourWindow {
	now := r.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, r.loc)
	start = start.Add(time.Duration(offset) * time.Hour)
	return domain.HourWindow{Start: start, End: start.Add(time.Hour)}
}

// NextTradeableWindow returns the window of the market that can still be
// traded: the current hour normally, the next hour once the clock is inside
// the pre-close margin.
func (r *Resolver) NextTradeableWindow() domain.HourWindow {
	if r.InPreclose() {
		return r.TargetWindow(1)
	}
	return r.TargetWindow(0)
}

// InPreclose reports whether the wall clock is within the pre-close margin
// of the hour boundary, when both venues have stopped accepting orders for
// the closing market.
func (r *Resolver) InPreclose() bool {
	return r.TargetWindow(0).End.Sub(r.Now()) <= r.preclose
}

// EventTicker generates the date-level Kalshi event ticker used for market
// discovery. Format: {SERIES}-{YY}{MON}{DD}, e.g. "KXBTCD-26JAN09".
func EventTicker(asset domain.AssetConfig, t time.Time) string {
	return fmt.Sprintf("%s-%02d%s%02d",
		asset.KalshiSeries, t.Year()%100, monthAbbr[t.Month()-1], t.Day())
}

// MarketTicker generates the hour-level Kalshi event ticker candidate.
// Format: {SERIES}-{YY}{MON}{DD}{HH}, e.g. "KXBTCD-26JAN0921". The hour is
// the market's close hour in 24-hour venue time. The authoritative ticker
// comes from discovery; this is the fallback.
func MarketTicker(asset domain.AssetConfig, t time.Time) string {
	return fmt.Sprintf("%s-%02d%s%02d%02d",
		asset.KalshiSeries, t.Year()%100, monthAbbr[t.Month()-1], t.Day(), t.Hour())
}

// EventSlug generates the Polymarket event slug for the market opening at t.
// Format: {prefix}-{monthname}-{day}-{h12}{am|pm}-et,
// e.g. "bitcoin-up-or-down-january-9-8pm-et". Midnight is 12am, noon 12pm.
func EventSlug(asset domain.AssetConfig, t time.Time) string {
	hour12, period := clock12(t.Hour())
	return fmt.Sprintf("%s-%s-%d-%d%s-et",
		asset.PolymarketSlugPrefix, monthFull[t.Month()-1], t.Day(), hour12, period)
}

func clock12(hour24 int) (int, string) {
	switch {
	case hour24 == 0:
		return 12, "am"
	case hour24 < 12:
		return hour24, "am"
	case hour24 == 12:
		return 12, "pm"
	default:
		return hour24 - 12, "pm"
	}
}

// KalshiURL returns the market page URL for a resolved ticker.
func KalshiURL(asset domain.AssetConfig, ticker string) string {
	slug, ok := kalshiURLSlugs[asset.Symbol]
	if !ok {
		slug = strings.ToLower(asset.Name) + "-price-abovebelow"
	}
	return fmt.Sprintf("https://kalshi.com/markets/%s/%s/%s",
		asset.KalshiMarketBase, slug, strings.ToLower(ticker))
}

// PolymarketURL returns the event page URL for a slug.
func PolymarketURL(slug string) string {
	return "https://polymarket.com/event/" + slug
}

// ResolvePair resolves both venues' identifiers for the market trading at
// the requested hour offset.
//
// The two venues name the same trading window differently: Kalshi by close
// time, Polymarket by open time. The Kalshi side therefore uses the requested
// offset while the Polymarket side uses offset-1, floored at zero. Getting
// this wrong silently pairs two different markets.
//
// The generated Kalshi ticker is only a candidate: the authoritative ticker
// comes from listing the date-level event and selecting the market whose
// close time matches the target window's end, to the second, in UTC. When no
// entry matches (or the listing call fails) the candidate is used — degraded
// but non-fatal, the next discovery pass retries.
func (r *Resolver) ResolvePair(ctx context.Context, asset domain.AssetConfig, offset int, disc Discoverer) domain.MarketPair {
	kalshiWindow := r.TargetWindow(offset)

	polyOffset := offset - 1
	if polyOffset < 0 {
		polyOffset = 0
	}
	polyWindow := r.TargetWindow(polyOffset)

	candidate := MarketTicker(asset, kalshiWindow.Start)
	eventTicker := EventTicker(asset, kalshiWindow.Start)

	ticker := candidate
	discovered := false
	if disc != nil {
		if real, ok := r.discoverTicker(ctx, disc, asset, eventTicker, kalshiWindow.End); ok {
			ticker = real
			discovered = true
		}
	}

	slug := EventSlug(asset, polyWindow.Start)

	return domain.MarketPair{
		Asset:             asset.Symbol,
		Window:            kalshiWindow,
		KalshiEventTicker: eventTicker,
		KalshiTicker:      ticker,
		KalshiURL:         KalshiURL(asset, ticker),
		Discovered:        discovered,
		PolymarketSlug:    slug,
		PolymarketURL:     PolymarketURL(slug),
		ResolvedAt:        r.Now(),
	}
}

// discoverTicker queries the market listing for the date-level event and
// picks the entry closing exactly at closeAt.
func (r *Resolver) discoverTicker(ctx context.Context, disc Discoverer, asset domain.AssetConfig, eventTicker string, closeAt time.Time) (string, bool) {
	markets, err := disc.MarketsByEvent(ctx, eventTicker)
	if err != nil {
		r.logger.Warn("event listing failed, using generated ticker",
			slog.String("asset", asset.Symbol),
			slog.String("event_ticker", eventTicker),
			slog.String("error", err.Error()),
		)
		return "", false
	}
	want := closeAt.UTC()
	for _, m := range markets {
		ct, err := time.Parse(time.RFC3339, m.CloseTime)
		if err != nil {
			continue
		}
		if ct.UTC().Equal(want) {
			if m.EventTicker != "" {
				return m.EventTicker, true
			}
			return m.Ticker, true
		}
	}
	r.logger.Debug("no close-time match in event listing",
		slog.String("asset", asset.Symbol),
		slog.String("event_ticker", eventTicker),
		slog.Time("close_at", want),
	)
	return "", false
}
