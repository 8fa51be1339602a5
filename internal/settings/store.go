// Package settings holds the runtime-mutable tracker configuration: which
// assets are monitored and each asset's gap bounds. The orchestrator reads a
// snapshot every cycle; the dashboard mutates through the same store.
package settings

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/arbtracker/internal/domain"
)

// defaultCatalog seeds the store with the hourly up/down series both venues
// list. Gap bounds default to a window proportional to each asset's price
// scale; MinGap stays zero so an at-the-strike check is always in range.
func defaultCatalog() map[string]domain.AssetConfig {
	return map[string]domain.AssetConfig{
		"BTC": {
			Name:                 "Bitcoin",
			Symbol:               "BTC",
			KalshiSeries:         "KXBTCD",
			KalshiMarketBase:     "kxbtcd",
			PolymarketSlugPrefix: "bitcoin-up-or-down",
			SpotSymbol:           "BTCUSDT",
			MaxGap:               2000,
		},
		"ETH": {
			Name:                 "Ethereum",
			Symbol:               "ETH",
			KalshiSeries:         "KXETHD",
			KalshiMarketBase:     "kxethd",
			PolymarketSlugPrefix: "ethereum-up-or-down",
			SpotSymbol:           "ETHUSDT",
			MaxGap:               100,
		},
		"XRP": {
			Name:                 "XRP",
			Symbol:               "XRP",
			KalshiSeries:         "KXXRPD",
			KalshiMarketBase:     "kxxrpd",
			PolymarketSlugPrefix: "xrp-up-or-down",
			SpotSymbol:           "XRPUSDT",
			MaxGap:               0.05,
		},
		"SOL": {
			Name:                 "Solana",
			Symbol:               "SOL",
			KalshiSeries:         "KXSOLD",
			KalshiMarketBase:     "kxsold",
			PolymarketSlugPrefix: "solana-up-or-down",
			SpotSymbol:           "SOLUSDT",
			MaxGap:               5,
		},
	}
}

// Store is the concurrency-safe settings registry.
type Store struct {
	mu        sync.RWMutex
	assets    map[string]domain.AssetConfig
	monitored map[string]bool
}

// NewStore builds a store over the default catalog with the given symbols
// monitored. Unknown symbols are ignored rather than rejected so a stale
// config file cannot stop the tracker from starting.
func NewStore(monitored []string) *Store {
	s := &Store{
		assets:    defaultCatalog(),
		monitored: make(map[string]bool),
	}
	for _, sym := range monitored {
		if _, ok := s.assets[sym]; ok {
			s.monitored[sym] = true
		}
	}
	return s
}

// Get returns the asset's current configuration.
func (s *Store) Get(symbol string) (domain.AssetConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[symbol]
	return a, ok
}

// Catalog returns every known asset, sorted by symbol.
func (s *Store) Catalog() []domain.AssetConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(string) bool { return true })
}

// Monitored returns the currently monitored assets, sorted by symbol.
func (s *Store) Monitored() []domain.AssetConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(sym string) bool { return s.monitored[sym] })
}

// IsMonitored reports whether the symbol is currently monitored.
func (s *Store) IsMonitored(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.monitored[symbol]
}

// SetMonitored turns monitoring for a symbol on or off.
func (s *Store) SetMonitored(symbol string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[symbol]; !ok {
		return fmt.Errorf("settings: %q: %w", symbol, domain.ErrUnknownAsset)
	}
	if on {
		s.monitored[symbol] = true
	} else {
		delete(s.monitored, symbol)
	}
	return nil
}

// SetGapBounds updates the asset's gap window. A zero max means unbounded.
func (s *Store) SetGapBounds(symbol string, minGap, maxGap float64) error {
	if minGap < 0 || maxGap < 0 {
		return fmt.Errorf("settings: gap bounds must be non-negative")
	}
	if maxGap > 0 && minGap > maxGap {
		return fmt.Errorf("settings: min gap %v exceeds max gap %v", minGap, maxGap)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[symbol]
	if !ok {
		return fmt.Errorf("settings: %q: %w", symbol, domain.ErrUnknownAsset)
	}
	a.MinGap = minGap
	a.MaxGap = maxGap
	s.assets[symbol] = a
	return nil
}

func (s *Store) sortedLocked(include func(string) bool) []domain.AssetConfig {
	out := make([]domain.AssetConfig, 0, len(s.assets))
	for sym, a := range s.assets {
		if include(sym) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
