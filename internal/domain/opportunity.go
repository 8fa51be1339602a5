package domain

import "time"

// Comparison classifies how the reference price relates to a Kalshi strike.
type Comparison string

const (
	RefAboveStrike Comparison = "ref_above_strike"
	RefBelowStrike Comparison = "ref_below_strike"
	RefEqualStrike Comparison = "ref_equal_strike"
)

// OpportunityCheck is one evaluated strike/leg pairing. Checks are built once
// per evaluation cycle and never mutated afterwards. A check with IsArbitrage
// false is "theoretical": inside the gap window but failing profitability or
// liquidity, reported for visibility only.
type OpportunityCheck struct {
	ID    string `json:"id"`
	Asset string `json:"asset"`

	KalshiStrike   float64    `json:"kalshi_strike"`
	ReferencePrice float64    `json:"reference_price"`
	Gap            float64    `json:"gap"`
	Comparison     Comparison `json:"comparison"`

	KalshiLeg  string  `json:"kalshi_leg"` // "Yes" or "No"
	PolyLeg    string  `json:"poly_leg"`   // "Up" or "Down"
	KalshiCost float64 `json:"kalshi_cost"`
	PolyCost   float64 `json:"poly_cost"`
	TotalCost  float64 `json:"total_cost"`

	// Available is the tradable contract count, bounded by the thinner leg.
	Available float64 `json:"available"`

	IsArbitrage bool    `json:"is_arbitrage"`
	Margin      float64 `json:"margin"`

	// StakeFraction is the recommended fraction of bankroll; always 0 for
	// theoretical checks.
	StakeFraction float64 `json:"stake_fraction"`
}

// Evaluation is the output of one engine run for one asset.
type Evaluation struct {
	Checks        []OpportunityCheck `json:"checks"`
	Opportunities []OpportunityCheck `json:"opportunities"`
	Diagnostics   []string           `json:"diagnostics"`
}

// KalshiView is the venue-A half of a published snapshot.
type KalshiView struct {
	EventTicker string        `json:"event_ticker"`
	URL         string        `json:"url"`
	Markets     []StrikeQuote `json:"markets"`
}

// PolymarketView is the venue-B half of a published snapshot.
type PolymarketView struct {
	Slug   string           `json:"slug"`
	URL    string           `json:"url"`
	Prices map[string]Quote `json:"prices"`
}

// AssetSnapshot is the per-cycle, per-asset result pushed to dashboard
// clients and served on pull.
type AssetSnapshot struct {
	Asset          string             `json:"asset"`
	Timestamp      time.Time          `json:"timestamp"`
	ReferencePrice ReferencePrice     `json:"reference_price"`
	Kalshi         KalshiView         `json:"kalshi"`
	Polymarket     PolymarketView     `json:"polymarket"`
	Checks         []OpportunityCheck `json:"checks"`
	Opportunities  []OpportunityCheck `json:"opportunities"`
	Errors         []string           `json:"errors,omitempty"`
}
