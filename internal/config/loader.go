package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBTRACKER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load. A missing file is not an
// error: defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBTRACKER_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators adjust endpoints and timers at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Kalshi.BaseURL, "ARBTRACKER_KALSHI_BASE_URL")
	setFloat64(&cfg.Kalshi.RequestsPerSecond, "ARBTRACKER_KALSHI_REQUESTS_PER_SECOND")
	setInt(&cfg.Kalshi.RetryMaxAttempts, "ARBTRACKER_KALSHI_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Kalshi.RetryBaseDelay, "ARBTRACKER_KALSHI_RETRY_BASE_DELAY")

	setStr(&cfg.Polymarket.GammaHost, "ARBTRACKER_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.WsHost, "ARBTRACKER_POLYMARKET_WS_HOST")
	setStr(&cfg.Polymarket.DataHost, "ARBTRACKER_POLYMARKET_DATA_HOST")

	setStr(&cfg.RefPrice.BinanceHost, "ARBTRACKER_REFPRICE_BINANCE_HOST")
	setStr(&cfg.RefPrice.CryptoCompareHost, "ARBTRACKER_REFPRICE_CRYPTOCOMPARE_HOST")
	setDuration(&cfg.RefPrice.Timeout, "ARBTRACKER_REFPRICE_TIMEOUT")

	setStr(&cfg.Tracker.Timezone, "ARBTRACKER_TRACKER_TIMEZONE")
	setStringSlice(&cfg.Tracker.Monitored, "ARBTRACKER_TRACKER_MONITORED")
	setDuration(&cfg.Tracker.DiscoveryInterval, "ARBTRACKER_TRACKER_DISCOVERY_INTERVAL")
	setDuration(&cfg.Tracker.EvaluateInterval, "ARBTRACKER_TRACKER_EVALUATE_INTERVAL")
	setDuration(&cfg.Tracker.PollInterval, "ARBTRACKER_TRACKER_POLL_INTERVAL")
	setDuration(&cfg.Tracker.PrecloseMargin, "ARBTRACKER_TRACKER_PRECLOSE_MARGIN")

	setFloat64(&cfg.Staking.KellyFraction, "ARBTRACKER_STAKING_KELLY_FRACTION")
	setFloat64(&cfg.Staking.Confidence, "ARBTRACKER_STAKING_CONFIDENCE")
	setFloat64(&cfg.Staking.MaxFraction, "ARBTRACKER_STAKING_MAX_FRACTION")

	setBool(&cfg.Server.Enabled, "ARBTRACKER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBTRACKER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBTRACKER_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARBTRACKER_SERVER_API_KEY")
	setFloat64(&cfg.Server.RateLimitRPS, "ARBTRACKER_SERVER_RATE_LIMIT_RPS")
	setInt(&cfg.Server.RateLimitBurst, "ARBTRACKER_SERVER_RATE_LIMIT_BURST")

	setStr(&cfg.LogLevel, "ARBTRACKER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
