// Package kalshi is the REST client for Kalshi's public market-data API. No
// authentication is used: the tracker only reads market data.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/arbtracker/internal/httpx"
)

// Client is the REST client for the Kalshi exchange API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      httpx.RetryPolicy
}

// NewClient creates a Kalshi market-data client.
//
// baseURL is the API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
// requestsPerSecond paces outbound calls; retry governs 429 handling.
func NewClient(baseURL string, requestsPerSecond float64, retry httpx.RetryPolicy) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 8
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)+1),
		retry:   retry,
	}
}

// GetEventMarkets returns the event metadata and all strike markets for an
// hour-level event ticker via GET /events/{ticker}.
func (c *Client) GetEventMarkets(ctx context.Context, eventTicker string) (Event, []Market, error) {
	path := fmt.Sprintf("/events/%s", url.PathEscape(eventTicker))

	var resp struct {
		Event   Event    `json:"event"`
		Markets []Market `json:"markets"`
	}
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return Event{}, nil, fmt.Errorf("kalshi: get event %s: %w", eventTicker, err)
	}

	return resp.Event, resp.Markets, nil
}

// MarketsByEvent lists markets under a date-level event ticker via
// GET /markets?event_ticker=. Used by window discovery to find the
// authoritative hourly ticker.
func (c *Client) MarketsByEvent(ctx context.Context, eventTicker string) ([]Market, error) {
	params := url.Values{}
	params.Set("event_ticker", eventTicker)

	var resp struct {
		Markets []Market `json:"markets"`
	}
	if err := c.getJSON(ctx, "/markets?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("kalshi: markets by event %s: %w", eventTicker, err)
	}

	return resp.Markets, nil
}

// GetOrderbook returns the resting book for a single strike market, used to
// size the depth available at each ask.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (Orderbook, error) {
	path := fmt.Sprintf("/markets/%s/orderbook", url.PathEscape(ticker))

	var resp struct {
		Orderbook Orderbook `json:"orderbook"`
	}
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return Orderbook{}, fmt.Errorf("kalshi: get orderbook %s: %w", ticker, err)
	}

	return resp.Orderbook, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// getJSON performs a paced, retried GET against the API and decodes the
// response body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	fullURL := c.baseURL + path

	resp, err := httpx.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, fullURL, nil)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		_ = json.Unmarshal(body, &apiErr)
		return fmt.Errorf("HTTP %d: %s (%s)", resp.StatusCode, apiErr.Message, apiErr.Code)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
