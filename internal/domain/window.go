package domain

import "time"

// HourWindow is one trading hour: [Start, End) with End = Start + 1h, both
// floored to the hour in the venue timezone.
type HourWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w HourWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// MarketPair holds the resolved venue identifiers for one asset's active
// trading hour. Exactly one pair is active per asset at a time; the
// orchestrator replaces it wholesale on each discovery pass.
type MarketPair struct {
	Asset  string     `json:"asset"`
	Window HourWindow `json:"window"`

	// KalshiEventTicker is the date-level discovery identifier
	// (e.g. "KXBTCD-26JAN09").
	KalshiEventTicker string `json:"kalshi_event_ticker"`

	// KalshiTicker is the hour-level event ticker used for polling. It is
	// the authoritative ticker from discovery when a close-time match was
	// found, otherwise the generated candidate (degraded).
	KalshiTicker string `json:"kalshi_ticker"`
	KalshiURL    string `json:"kalshi_url"`

	// Discovered is false when the ticker fell back to the generated
	// candidate because no listed market matched the window close time.
	Discovered bool `json:"discovered"`

	PolymarketSlug string `json:"polymarket_slug"`
	PolymarketURL  string `json:"polymarket_url"`

	ResolvedAt time.Time `json:"resolved_at"`
}
