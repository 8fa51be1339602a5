package kalshi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbtracker/internal/httpx"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	retry := httpx.DefaultPolicy(time.Millisecond)
	retry.Sleep = func(time.Duration) {}
	return NewClient(srv.URL, 1000, retry)
}

func TestGetEventMarkets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events/KXBTCD-26JAN0921", r.URL.Path)
		w.Write([]byte(`{
			"event": {"event_ticker": "KXBTCD-26JAN0921", "title": "Bitcoin price at 9pm EST?"},
			"markets": [
				{"ticker": "KXBTCD-26JAN0921-T95000", "floor_strike": 95000,
				 "yes_ask": 55, "yes_bid": 53, "no_ask": 47, "no_bid": 45,
				 "close_time": "2026-01-09T21:00:00Z"}
			]
		}`))
	})

	event, markets, err := c.GetEventMarkets(context.Background(), "KXBTCD-26JAN0921")

	require.NoError(t, err)
	assert.Equal(t, "KXBTCD-26JAN0921", event.EventTicker)
	require.Len(t, markets, 1)
	assert.Equal(t, 95000.0, markets[0].FloorStrike)
	assert.Equal(t, 0.55, markets[0].YesAskDollars())
	assert.Equal(t, 0.47, markets[0].NoAskDollars())
	assert.Equal(t, 0.45, markets[0].NoBidDollars())
}

func TestMarketsByEvent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "KXBTCD-26JAN09", r.URL.Query().Get("event_ticker"))
		w.Write([]byte(`{"markets": [
			{"ticker": "KXBTCD-26JAN0920-T95000", "close_time": "2026-01-09T20:00:00Z"},
			{"ticker": "KXBTCD-26JAN0921-T95000", "close_time": "2026-01-09T21:00:00Z"}
		]}`))
	})

	markets, err := c.MarketsByEvent(context.Background(), "KXBTCD-26JAN09")

	require.NoError(t, err)
	assert.Len(t, markets, 2)
}

func TestGetOrderbook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/KXBTCD-26JAN0921-T95000/orderbook", r.URL.Path)
		w.Write([]byte(`{"orderbook": {
			"yes": [[40, 100], [53, 120]],
			"no":  [[45, 80], [30, 60]]
		}}`))
	})

	book, err := c.GetOrderbook(context.Background(), "KXBTCD-26JAN0921-T95000")

	require.NoError(t, err)
	// Yes ask depth is the quantity at the best no bid, and vice versa.
	assert.Equal(t, 80.0, book.YesAskDepth())
	assert.Equal(t, 120.0, book.NoAskDepth())
}

func TestGetOrderbook_EmptySides(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orderbook": {"yes": [], "no": null}}`))
	})

	book, err := c.GetOrderbook(context.Background(), "T")

	require.NoError(t, err)
	assert.Zero(t, book.YesAskDepth())
	assert.Zero(t, book.NoAskDepth())
}

func TestGetEventMarkets_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code": "not_found", "message": "event not found"}`))
	})

	_, _, err := c.GetEventMarkets(context.Background(), "KXBTCD-00XXX0000")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "event not found")
	assert.Contains(t, err.Error(), "404")
}

func TestGetEventMarkets_RetriesRateLimit(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"event": {"event_ticker": "EV"}, "markets": []}`))
	})

	event, _, err := c.GetEventMarkets(context.Background(), "EV")

	require.NoError(t, err)
	assert.Equal(t, "EV", event.EventTicker)
	assert.Equal(t, 2, calls)
}

func TestPriceLevelDecoding(t *testing.T) {
	var level PriceLevel
	require.NoError(t, level.UnmarshalJSON([]byte(`[53, 120]`)))
	assert.Equal(t, int64(53), level.PriceCents)
	assert.Equal(t, int64(120), level.Quantity)

	assert.Error(t, level.UnmarshalJSON([]byte(`[53]`)))
	assert.Error(t, level.UnmarshalJSON([]byte(`{"price": 53}`)))
}
