package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string. The CLOB
// WebSocket sends prices and sizes as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket is the subset of the Gamma market payload the tracker needs.
// Outcomes and ClobTokenIDs are parallel JSON-encoded arrays; that pairing is
// the canonical schema and any deviation is treated as a parse error for the
// market, not silently worked around.
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Slug          string   `json:"slug"`
	Active        flexBool `json:"active"`
	Closed        bool     `json:"closed"`
	Outcomes      string   `json:"outcomes"`      // e.g. "[\"Up\",\"Down\"]"
	OutcomePrices string   `json:"outcomePrices"` // e.g. "[\"0.52\",\"0.48\"]"
	ClobTokenIDs  string   `json:"clobTokenIds"`  // e.g. "[\"123\",\"456\"]"
	Volume        string   `json:"volume"`
	Liquidity     string   `json:"liquidity"`
}

// OutcomeToken pairs one outcome name with its CLOB instrument token.
type OutcomeToken struct {
	TokenID string
	Outcome string
}

// OutcomeTokens decodes the parallel outcomes/clobTokenIds arrays. An empty
// or mismatched pairing is an error: the caller skips the market rather than
// guessing.
func (m APIMarket) OutcomeTokens() ([]OutcomeToken, error) {
	var tokens []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &tokens); err != nil {
		return nil, fmt.Errorf("polymarket: decode clobTokenIds for market %s: %w", m.ID, err)
	}
	var outcomes []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return nil, fmt.Errorf("polymarket: decode outcomes for market %s: %w", m.ID, err)
	}
	if len(tokens) == 0 || len(tokens) != len(outcomes) {
		return nil, fmt.Errorf("polymarket: market %s has %d tokens for %d outcomes",
			m.ID, len(tokens), len(outcomes))
	}

	pairs := make([]OutcomeToken, len(tokens))
	for i := range tokens {
		pairs[i] = OutcomeToken{TokenID: tokens[i], Outcome: outcomes[i]}
	}
	return pairs, nil
}

// --------------------------------------------------------------------------
// CLOB WebSocket DTOs
// --------------------------------------------------------------------------

// WSCommand is the subscription command sent on the market channel.
type WSCommand struct {
	Type     string   `json:"type"`
	AssetIDs []string `json:"assets_ids"`
	Channel  string   `json:"channel"`
}

// WSEnvelope identifies the type of an incoming message.
type WSEnvelope struct {
	EventType string `json:"event_type"`
}

// PriceChangeMessage is the batched best-price update on the market channel.
type PriceChangeMessage struct {
	EventType    string        `json:"event_type"`
	PriceChanges []PriceChange `json:"price_changes"`
}

// PriceChange is one instrument's best-price update.
type PriceChange struct {
	AssetID string    `json:"asset_id"`
	BestAsk flexFloat `json:"best_ask"`
	BestBid flexFloat `json:"best_bid"`
	Size    flexFloat `json:"size"`
}

// Ask returns the best ask as float64.
func (p PriceChange) Ask() float64 { return float64(p.BestAsk) }

// Bid returns the best bid as float64.
func (p PriceChange) Bid() float64 { return float64(p.BestBid) }

// Depth returns the size as float64.
func (p PriceChange) Depth() float64 { return float64(p.Size) }

// LegacyPriceMessage covers initial/legacy events carrying a single price for
// one instrument.
type LegacyPriceMessage struct {
	AssetID string    `json:"asset_id"`
	Price   flexFloat `json:"price"`
	Size    flexFloat `json:"size"`
}
