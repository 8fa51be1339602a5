// Package config defines the top-level configuration for the arbitrage
// tracker and provides validation helpers.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBTRACKER_* environment
// variables.
type Config struct {
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	RefPrice   RefPriceConfig   `toml:"refprice"`
	Tracker    TrackerConfig    `toml:"tracker"`
	Staking    StakingConfig    `toml:"staking"`
	Server     ServerConfig     `toml:"server"`

	// Assets holds per-asset runtime overrides keyed by symbol, applied on
	// top of the built-in catalog at startup.
	Assets map[string]AssetOverride `toml:"assets"`

	LogLevel string `toml:"log_level"`
}

// KalshiConfig holds Kalshi public market-data API parameters.
type KalshiConfig struct {
	BaseURL string `toml:"base_url"`

	// RequestsPerSecond paces outbound polling calls.
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// Retry policy for rate-limited responses.
	RetryMaxAttempts int      `toml:"retry_max_attempts"`
	RetryBaseDelay   duration `toml:"retry_base_delay"`
}

// PolymarketConfig holds Polymarket API endpoints.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
	WsHost    string `toml:"ws_host"`
	DataHost  string `toml:"data_host"` // internal data API, first refprice source
}

// RefPriceConfig holds reference-price fallback source endpoints.
type RefPriceConfig struct {
	BinanceHost       string   `toml:"binance_host"`
	CryptoCompareHost string   `toml:"cryptocompare_host"`
	Timeout           duration `toml:"timeout"`
}

// TrackerConfig holds the orchestration timers and window parameters.
type TrackerConfig struct {
	Timezone          string   `toml:"timezone"`
	Monitored         []string `toml:"monitored"`
	DiscoveryInterval duration `toml:"discovery_interval"`
	EvaluateInterval  duration `toml:"evaluate_interval"`
	PollInterval      duration `toml:"poll_interval"`

	// PrecloseMargin is how long before the hour boundary both venues stop
	// accepting orders; within it, discovery targets the next hour.
	PrecloseMargin duration `toml:"preclose_margin"`
}

// StakingConfig parameterizes the fractional-Kelly stake recommendation.
type StakingConfig struct {
	KellyFraction float64 `toml:"kelly_fraction"` // fraction of full Kelly
	Confidence    float64 `toml:"confidence"`     // win-probability discount
	MaxFraction   float64 `toml:"max_fraction"`   // hard cap on the stake
}

// ServerConfig holds the dashboard HTTP/WebSocket server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`

	// APIKey protects the dashboard API when set; empty disables auth.
	// Usually supplied via ARBTRACKER_SERVER_API_KEY rather than the file.
	APIKey string `toml:"api_key"`

	// RateLimitRPS and RateLimitBurst bound requests per client IP. A zero
	// RPS disables rate limiting.
	RateLimitRPS   float64 `toml:"rate_limit_rps"`
	RateLimitBurst int     `toml:"rate_limit_burst"`
}

// AssetOverride carries the per-asset fields operators may tune at deploy
// time. Zero values leave the catalog entry untouched.
type AssetOverride struct {
	MinGap *float64 `toml:"min_gap"`
	MaxGap *float64 `toml:"max_gap"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding ("5m", "30s").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration. Values mirror the public
// production endpoints of both venues.
func Defaults() Config {
	return Config{
		Kalshi: KalshiConfig{
			BaseURL:           "https://api.elections.kalshi.com/trade-api/v2",
			RequestsPerSecond: 8,
			RetryMaxAttempts:  5,
			RetryBaseDelay:    duration{500 * time.Millisecond},
		},
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			WsHost:    "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			DataHost:  "https://data-api.polymarket.com",
		},
		RefPrice: RefPriceConfig{
			BinanceHost:       "https://api.binance.com",
			CryptoCompareHost: "https://min-api.cryptocompare.com",
			Timeout:           duration{5 * time.Second},
		},
		Tracker: TrackerConfig{
			Timezone:          "America/New_York",
			Monitored:         []string{"BTC", "ETH", "XRP", "SOL"},
			DiscoveryInterval: duration{5 * time.Minute},
			EvaluateInterval:  duration{time.Second},
			PollInterval:      duration{time.Second},
			PrecloseMargin:    duration{5 * time.Minute},
		},
		Staking: StakingConfig{
			KellyFraction: 0.25,
			Confidence:    0.95,
			MaxFraction:   0.10,
		},
		Server: ServerConfig{
			Enabled:        true,
			Port:           8000,
			CORSOrigins:    []string{"*"},
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for values the tracker cannot run with.
func (c *Config) Validate() error {
	if c.Kalshi.BaseURL == "" {
		return fmt.Errorf("config: kalshi.base_url is required")
	}
	if c.Polymarket.GammaHost == "" || c.Polymarket.WsHost == "" {
		return fmt.Errorf("config: polymarket gamma_host and ws_host are required")
	}
	if _, err := time.LoadLocation(c.Tracker.Timezone); err != nil {
		return fmt.Errorf("config: invalid tracker.timezone %q: %w", c.Tracker.Timezone, err)
	}
	if c.Tracker.DiscoveryInterval.Duration <= 0 ||
		c.Tracker.EvaluateInterval.Duration <= 0 ||
		c.Tracker.PollInterval.Duration <= 0 {
		return fmt.Errorf("config: tracker intervals must be positive")
	}
	if c.Kalshi.RetryMaxAttempts < 0 {
		return fmt.Errorf("config: kalshi.retry_max_attempts must be >= 0")
	}
	if c.Staking.KellyFraction <= 0 || c.Staking.KellyFraction > 1 {
		return fmt.Errorf("config: staking.kelly_fraction must be in (0, 1]")
	}
	if c.Staking.Confidence <= 0 || c.Staking.Confidence > 1 {
		return fmt.Errorf("config: staking.confidence must be in (0, 1]")
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("config: server.rate_limit_rps must be >= 0")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("config: server.rate_limit_burst must be positive when rate limiting is on")
	}
	return nil
}
