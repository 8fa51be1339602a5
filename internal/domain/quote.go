package domain

// Quote is the normalized best-price record for one side of a binary
// contract. Prices are in payout units (0..1 dollars per contract). Size is
// the contract depth available at the ask; 0 when the source cannot report
// depth.
type Quote struct {
	Ask  float64 `json:"ask"`
	Bid  float64 `json:"bid"`
	Size float64 `json:"size"`
}

// Valid reports whether the ask is strictly inside the open interval (0, 1).
// A price of exactly 0 or at/above the full payout unit marks a dead or
// one-sided market.
func (q Quote) Valid() bool {
	return q.Ask > 0 && q.Ask < 1.0
}

// StrikeQuote is one Kalshi strike market's current quotes, normalized to
// payout units.
type StrikeQuote struct {
	Ticker   string  `json:"ticker"`
	Strike   float64 `json:"strike"`
	Subtitle string  `json:"subtitle"`
	Yes      Quote   `json:"yes"`
	No       Quote   `json:"no"`
}

// Polymarket outcome names for hourly up/down events. Up plays the role of
// Kalshi's Yes, Down the role of No.
const (
	OutcomeUp   = "Up"
	OutcomeDown = "Down"
)
