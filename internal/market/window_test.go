package market

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbtracker/internal/domain"
	"github.com/alanyoungcy/arbtracker/internal/platform/kalshi"
)

var btc = domain.AssetConfig{
	Name:                 "Bitcoin",
	Symbol:               "BTC",
	KalshiSeries:         "KXBTCD",
	KalshiMarketBase:     "kxbtcd",
	PolymarketSlugPrefix: "bitcoin-up-or-down",
	SpotSymbol:           "BTCUSDT",
}

type listDiscoverer struct {
	markets []kalshi.Market
	err     error
	calls   []string
}

func (d *listDiscoverer) MarketsByEvent(_ context.Context, eventTicker string) ([]kalshi.Market, error) {
	d.calls = append(d.calls, eventTicker)
	return d.markets, d.err
}

func resolverAt(t *testing.T, tz string, at time.Time) *Resolver {
	t.Helper()
	r, err := NewResolver(tz, 0, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return r.WithClock(func() time.Time { return at })
}

func TestTargetWindow(t *testing.T) {
	at := time.Date(2026, time.January, 9, 20, 42, 17, 0, time.UTC)
	r := resolverAt(t, "UTC", at)

	w := r.TargetWindow(0)
	assert.Equal(t, time.Date(2026, time.January, 9, 20, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, w.Start.Add(time.Hour), w.End)
	assert.True(t, w.Contains(at))

	next := r.TargetWindow(1)
	assert.Equal(t, w.End, next.Start)

	// Offsets cross day boundaries cleanly.
	late := resolverAt(t, "UTC", time.Date(2026, time.January, 9, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, 10, late.TargetWindow(1).Start.Day())
	assert.Equal(t, 0, late.TargetWindow(1).Start.Hour())
}

func TestInPreclose(t *testing.T) {
	assert.False(t, resolverAt(t, "UTC", time.Date(2026, 1, 9, 20, 54, 59, 0, time.UTC)).InPreclose())
	assert.True(t, resolverAt(t, "UTC", time.Date(2026, 1, 9, 20, 55, 0, 0, time.UTC)).InPreclose())

	r := resolverAt(t, "UTC", time.Date(2026, 1, 9, 20, 57, 0, 0, time.UTC))
	assert.Equal(t, 21, r.NextTradeableWindow().Start.Hour())
}

func TestInPreclose_ConfiguredMargin(t *testing.T) {
	at := time.Date(2026, 1, 9, 20, 52, 0, 0, time.UTC)

	wide, err := NewResolver("UTC", 10*time.Minute, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.True(t, wide.WithClock(func() time.Time { return at }).InPreclose())

	narrow, err := NewResolver("UTC", 2*time.Minute, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.False(t, narrow.WithClock(func() time.Time { return at }).InPreclose())
}

func TestTickerFormats(t *testing.T) {
	at := time.Date(2026, time.January, 9, 21, 0, 0, 0, time.UTC)

	assert.Equal(t, "KXBTCD-26JAN09", EventTicker(btc, at))
	assert.Equal(t, "KXBTCD-26JAN0921", MarketTicker(btc, at))
}

func TestEventSlug(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{0, "bitcoin-up-or-down-january-9-12am-et"},
		{8, "bitcoin-up-or-down-january-9-8am-et"},
		{12, "bitcoin-up-or-down-january-9-12pm-et"},
		{20, "bitcoin-up-or-down-january-9-8pm-et"},
		{23, "bitcoin-up-or-down-january-9-11pm-et"},
	}
	for _, tc := range cases {
		at := time.Date(2026, time.January, 9, tc.hour, 0, 0, 0, time.UTC)
		assert.Equal(t, tc.want, EventSlug(btc, at))
	}
}

func TestVenueURLs(t *testing.T) {
	assert.Equal(t,
		"https://kalshi.com/markets/kxbtcd/bitcoin-price-abovebelow/kxbtcd-26jan0921",
		KalshiURL(btc, "KXBTCD-26JAN0921"))
	assert.Equal(t,
		"https://polymarket.com/event/bitcoin-up-or-down-january-9-8pm-et",
		PolymarketURL("bitcoin-up-or-down-january-9-8pm-et"))
}

func TestResolvePair_OffsetAsymmetry(t *testing.T) {
	// Kalshi names the market by its close hour, Polymarket by its open
	// hour; the same trading window therefore pairs offset N on the Kalshi
	// side with offset N-1 on the Polymarket side.
	at := time.Date(2026, time.January, 9, 20, 10, 0, 0, time.UTC)
	r := resolverAt(t, "UTC", at)

	zero := r.ResolvePair(context.Background(), btc, 0, nil)
	one := r.ResolvePair(context.Background(), btc, 1, nil)

	assert.Equal(t, "KXBTCD-26JAN0920", zero.KalshiTicker)
	assert.Equal(t, "KXBTCD-26JAN0921", one.KalshiTicker)

	// Offset 1 on Kalshi pairs with the slug offset 0 would also generate:
	// the 8pm open is the market closing at 9pm.
	assert.Equal(t, "bitcoin-up-or-down-january-9-8pm-et", one.PolymarketSlug)

	// Offset 0 floors the Polymarket side at 0 rather than going negative.
	assert.Equal(t, "bitcoin-up-or-down-january-9-8pm-et", zero.PolymarketSlug)
}

func TestResolvePair_DiscoveryMatchesCloseTime(t *testing.T) {
	at := time.Date(2026, time.January, 9, 20, 10, 0, 0, time.UTC)
	r := resolverAt(t, "UTC", at)

	disc := &listDiscoverer{markets: []kalshi.Market{
		{EventTicker: "KXBTCD-26JAN0920", CloseTime: "2026-01-09T20:00:00Z"},
		{EventTicker: "KXBTCD-26JAN0921", CloseTime: "2026-01-09T21:00:00Z"},
		{EventTicker: "KXBTCD-26JAN0922", CloseTime: "2026-01-09T22:00:00Z"},
	}}
	pair := r.ResolvePair(context.Background(), btc, 0, disc)

	assert.Equal(t, []string{"KXBTCD-26JAN09"}, disc.calls)
	assert.True(t, pair.Discovered)
	assert.Equal(t, "KXBTCD-26JAN0921", pair.KalshiTicker, "matched on close time, not name")
}

func TestResolvePair_DiscoveryFallsBackToCandidate(t *testing.T) {
	at := time.Date(2026, time.January, 9, 20, 10, 0, 0, time.UTC)
	r := resolverAt(t, "UTC", at)

	t.Run("listing error", func(t *testing.T) {
		disc := &listDiscoverer{err: errors.New("kalshi down")}
		pair := r.ResolvePair(context.Background(), btc, 0, disc)
		assert.False(t, pair.Discovered)
		assert.Equal(t, "KXBTCD-26JAN0920", pair.KalshiTicker)
	})

	t.Run("no close-time match", func(t *testing.T) {
		disc := &listDiscoverer{markets: []kalshi.Market{
			{EventTicker: "KXBTCD-26JAN0923", CloseTime: "2026-01-09T23:00:00Z"},
		}}
		pair := r.ResolvePair(context.Background(), btc, 0, disc)
		assert.False(t, pair.Discovered)
		assert.Equal(t, "KXBTCD-26JAN0920", pair.KalshiTicker)
	})

	t.Run("unparseable close time skipped", func(t *testing.T) {
		disc := &listDiscoverer{markets: []kalshi.Market{
			{EventTicker: "KXBTCD-BAD", CloseTime: "not-a-time"},
			{EventTicker: "KXBTCD-26JAN0921", CloseTime: "2026-01-09T21:00:00Z"},
		}}
		pair := r.ResolvePair(context.Background(), btc, 0, disc)
		assert.True(t, pair.Discovered)
		assert.Equal(t, "KXBTCD-26JAN0921", pair.KalshiTicker)
	})
}

func TestResolvePair_TimezoneAffectsNames(t *testing.T) {
	// 01:10 UTC on Jan 10 is still 20:10 on Jan 9 in New York; both venues
	// name markets in eastern time.
	at := time.Date(2026, time.January, 10, 1, 10, 0, 0, time.UTC)
	r := resolverAt(t, "America/New_York", at)

	pair := r.ResolvePair(context.Background(), btc, 0, nil)

	assert.Equal(t, "KXBTCD-26JAN0920", pair.KalshiTicker)
	assert.Equal(t, "bitcoin-up-or-down-january-9-8pm-et", pair.PolymarketSlug)
}
