// Package domain defines the core value types shared across the arbitrage
// tracker: asset configuration, market windows, venue quotes, reference
// prices, and opportunity checks.
package domain

// AssetConfig describes one tracked instrument across both venues. Instances
// are immutable; runtime-mutable parameters (gap bounds, monitored flag) live
// in the settings store and are merged into snapshots read per cycle.
type AssetConfig struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`

	// Kalshi identifiers.
	KalshiSeries     string `json:"kalshi_series"`      // e.g. "KXBTCD"
	KalshiMarketBase string `json:"kalshi_market_base"` // e.g. "kxbtcd", for URLs

	// Polymarket identifiers.
	PolymarketSlugPrefix string `json:"polymarket_slug_prefix"` // e.g. "bitcoin-up-or-down"

	// SpotSymbol is the exchange pair used for reference-price resolution,
	// e.g. "BTCUSDT". It matches how the Polymarket contract settles.
	SpotSymbol string `json:"spot_symbol"`

	// Gap bounds: a strike is only acted on when |reference - strike| lies
	// inside [MinGap, MaxGap]. A zero MinGap means equal-strike checks are
	// always in range.
	MinGap float64 `json:"min_gap"`
	MaxGap float64 `json:"max_gap"`
}

// GapInRange reports whether the given strike-to-reference gap falls inside
// the asset's accepted risk window.
func (a AssetConfig) GapInRange(gap float64) bool {
	if gap < a.MinGap {
		return false
	}
	if a.MaxGap > 0 && gap > a.MaxGap {
		return false
	}
	return true
}
