package kalshi

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Kalshi API DTOs (public market data)
// --------------------------------------------------------------------------

// Market represents a market as returned by the Kalshi REST API. Prices are
// in cents (1-99).
type Market struct {
	Ticker       string  `json:"ticker"`
	EventTicker  string  `json:"event_ticker"`
	Title        string  `json:"title"`
	Subtitle     string  `json:"subtitle"`
	Status       string  `json:"status"` // "initialized", "active", "open", "closed", "settled"
	YesBid       int64   `json:"yes_bid"`
	YesAsk       int64   `json:"yes_ask"`
	NoBid        int64   `json:"no_bid"`
	NoAsk        int64   `json:"no_ask"`
	LastPrice    int64   `json:"last_price"`
	Volume       int64   `json:"volume"`
	Volume24H    int64   `json:"volume_24h"`
	OpenInterest int64   `json:"open_interest"`
	StrikeType   string  `json:"strike_type"`
	FloorStrike  float64 `json:"floor_strike"`
	CapStrike    float64 `json:"cap_strike"`
	OpenTime     string  `json:"open_time"`
	CloseTime    string  `json:"close_time"`
}

// YesAskDollars converts the cent-denominated yes ask to payout units.
func (m Market) YesAskDollars() float64 { return float64(m.YesAsk) / 100 }

// NoAskDollars converts the cent-denominated no ask to payout units.
func (m Market) NoAskDollars() float64 { return float64(m.NoAsk) / 100 }

// YesBidDollars converts the cent-denominated yes bid to payout units.
func (m Market) YesBidDollars() float64 { return float64(m.YesBid) / 100 }

// NoBidDollars converts the cent-denominated no bid to payout units.
func (m Market) NoBidDollars() float64 { return float64(m.NoBid) / 100 }

// Event represents event metadata from GET /events/{ticker}.
type Event struct {
	EventTicker  string `json:"event_ticker"`
	SeriesTicker string `json:"series_ticker"`
	Title        string `json:"title"`
	SubTitle     string `json:"sub_title"`
}

// PriceLevel is one resting-order level: [price_cents, quantity]. The API
// encodes levels as two-element arrays.
type PriceLevel struct {
	PriceCents int64
	Quantity   int64
}

// UnmarshalJSON decodes the [price, quantity] array form.
func (l *PriceLevel) UnmarshalJSON(data []byte) error {
	var pair []int64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("kalshi: price level has %d elements, want 2", len(pair))
	}
	l.PriceCents = pair[0]
	l.Quantity = pair[1]
	return nil
}

// Orderbook holds the resting bids for both sides of a market. Kalshi books
// only list bids: the ask for one side is the complement of the other side's
// best bid, and the depth at that ask is the quantity resting there.
type Orderbook struct {
	Yes []PriceLevel `json:"yes"`
	No  []PriceLevel `json:"no"`
}

// bestBid returns the highest-priced level, or false when the side is empty.
func bestBid(levels []PriceLevel) (PriceLevel, bool) {
	if len(levels) == 0 {
		return PriceLevel{}, false
	}
	best := levels[0]
	for _, l := range levels[1:] {
		if l.PriceCents > best.PriceCents {
			best = l
		}
	}
	return best, true
}

// YesAskDepth returns the contract quantity available at the best yes ask
// (the quantity resting at the best no bid). 0 when the book reports no
// depth.
func (b Orderbook) YesAskDepth() float64 {
	if l, ok := bestBid(b.No); ok {
		return float64(l.Quantity)
	}
	return 0
}

// NoAskDepth returns the contract quantity available at the best no ask.
func (b Orderbook) NoAskDepth() float64 {
	if l, ok := bestBid(b.Yes); ok {
		return float64(l.Quantity)
	}
	return 0
}

// ErrorResponse is the Kalshi API error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
