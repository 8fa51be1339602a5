package refprice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/arbtracker/internal/domain"
)

// Source fetches a candidate price-to-beat for one asset's trading hour.
// Implementations return the venue's idea of the hourly open; a non-positive
// value means the source has no answer.
type Source interface {
	Name() string
	Fetch(ctx context.Context, asset domain.AssetConfig, hourStart time.Time) (float64, error)
}

func getJSON(ctx context.Context, client *http.Client, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Polymarket data API — matches how the contract actually settles, so it is
// tried first to minimize basis risk.
// --------------------------------------------------------------------------

// PolymarketDataSource reads the hourly open from Polymarket's internal data
// API.
type PolymarketDataSource struct {
	Host   string
	Client *http.Client
}

// Name implements Source.
func (s *PolymarketDataSource) Name() string { return "polymarket_data_api" }

// Fetch implements Source. The endpoint answers either a bare number or an
// object with a "price" field.
func (s *PolymarketDataSource) Fetch(ctx context.Context, asset domain.AssetConfig, hourStart time.Time) (float64, error) {
	params := url.Values{}
	params.Set("symbol", asset.SpotSymbol)
	params.Set("timestamp", strconv.FormatInt(hourStart.Unix(), 10))

	var raw json.RawMessage
	if err := getJSON(ctx, s.Client, s.Host+"/price?"+params.Encode(), &raw); err != nil {
		return 0, err
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var obj struct {
		Price float64 `json:"price"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, fmt.Errorf("refprice: unexpected payload shape: %w", err)
	}
	return obj.Price, nil
}

// --------------------------------------------------------------------------
// Binance klines — the contracts' official resolution source.
// --------------------------------------------------------------------------

// BinanceSource reads the current hour's candle open from the Binance
// international klines endpoint.
type BinanceSource struct {
	Host   string
	Client *http.Client
}

// Name implements Source.
func (s *BinanceSource) Name() string { return "binance_intl" }

// Fetch implements Source. Klines rows are heterogeneous arrays; the open
// price is the string at index 1.
func (s *BinanceSource) Fetch(ctx context.Context, asset domain.AssetConfig, _ time.Time) (float64, error) {
	params := url.Values{}
	params.Set("symbol", asset.SpotSymbol)
	params.Set("interval", "1h")
	params.Set("limit", "1")

	var rows [][]json.RawMessage
	if err := getJSON(ctx, s.Client, s.Host+"/api/v3/klines?"+params.Encode(), &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) < 2 {
		return 0, fmt.Errorf("refprice: empty klines response")
	}

	var open string
	if err := json.Unmarshal(rows[0][1], &open); err != nil {
		return 0, fmt.Errorf("refprice: decode kline open: %w", err)
	}
	v, err := strconv.ParseFloat(open, 64)
	if err != nil {
		return 0, fmt.Errorf("refprice: parse kline open: %w", err)
	}
	return v, nil
}

// --------------------------------------------------------------------------
// CryptoCompare — Binance mirror that works from restricted regions.
// --------------------------------------------------------------------------

// CryptoCompareSource reads the Binance hourly open via CryptoCompare.
type CryptoCompareSource struct {
	Host   string
	Client *http.Client
}

// Name implements Source.
func (s *CryptoCompareSource) Name() string { return "cryptocompare_binance" }

// Fetch implements Source.
func (s *CryptoCompareSource) Fetch(ctx context.Context, asset domain.AssetConfig, _ time.Time) (float64, error) {
	params := url.Values{}
	params.Set("fsym", asset.Symbol)
	params.Set("tsym", "USDT")
	params.Set("limit", "1")
	params.Set("e", "Binance")

	var resp struct {
		Response string `json:"Response"`
		Data     struct {
			Data []struct {
				Open float64 `json:"open"`
			} `json:"Data"`
		} `json:"Data"`
	}
	if err := getJSON(ctx, s.Client, s.Host+"/data/v2/histohour?"+params.Encode(), &resp); err != nil {
		return 0, err
	}
	if resp.Response != "Success" || len(resp.Data.Data) == 0 {
		return 0, fmt.Errorf("refprice: cryptocompare response %q", resp.Response)
	}
	// The last point is the current, still-forming hour.
	return resp.Data.Data[len(resp.Data.Data)-1].Open, nil
}
