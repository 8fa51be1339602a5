package feed

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/arbtracker/internal/domain"
	"github.com/alanyoungcy/arbtracker/internal/platform/kalshi"
)

// kalshiAPI is the slice of the Kalshi client the stream needs.
type kalshiAPI interface {
	GetEventMarkets(ctx context.Context, eventTicker string) (kalshi.Event, []kalshi.Market, error)
	GetOrderbook(ctx context.Context, ticker string) (kalshi.Orderbook, error)
}

// KalshiStream keeps an up-to-date strike ladder for each tracked asset by
// polling the Kalshi REST API. Each successful poll replaces the asset's
// quotes wholesale; a failed poll leaves the previous ladder in place.
type KalshiStream struct {
	client   kalshiAPI
	interval time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	targets map[string]string               // asset symbol -> event ticker
	quotes  map[string][]domain.StrikeQuote // asset symbol -> ladder, ascending by strike
}

// NewKalshiStream builds a stream polling at the given interval.
func NewKalshiStream(client kalshiAPI, interval time.Duration, logger *slog.Logger) *KalshiStream {
	return &KalshiStream{
		client:   client,
		interval: interval,
		logger:   logger.With(slog.String("component", "kalshi_stream")),
		targets:  make(map[string]string),
		quotes:   make(map[string][]domain.StrikeQuote),
	}
}

// Track points the asset at an event ticker. Changing the ticker drops the
// stale ladder immediately so a rolled-over window never serves quotes from
// the previous hour.
func (s *KalshiStream) Track(asset, eventTicker string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.targets[asset] == eventTicker {
		return
	}
	s.targets[asset] = eventTicker
	delete(s.quotes, asset)
	s.logger.Info("tracking event",
		slog.String("asset", asset),
		slog.String("event_ticker", eventTicker))
}

// Untrack stops polling the asset and discards its ladder.
func (s *KalshiStream) Untrack(asset string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.targets, asset)
	delete(s.quotes, asset)
}

// Latest returns the asset's current strike ladder, ascending by strike.
// The returned slice is a copy.
func (s *KalshiStream) Latest(asset string) []domain.StrikeQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ladder := s.quotes[asset]
	if len(ladder) == 0 {
		return nil
	}
	out := make([]domain.StrikeQuote, len(ladder))
	copy(out, ladder)
	return out
}

// Run polls all tracked assets until ctx is cancelled.
func (s *KalshiStream) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.pollAll(ctx)
		}
	}
}

func (s *KalshiStream) pollAll(ctx context.Context) {
	s.mu.RLock()
	targets := make(map[string]string, len(s.targets))
	for asset, ticker := range s.targets {
		targets[asset] = ticker
	}
	s.mu.RUnlock()

	for asset, eventTicker := range targets {
		if ctx.Err() != nil {
			return
		}
		if err := s.poll(ctx, asset, eventTicker); err != nil {
			s.logger.Warn("poll failed",
				slog.String("asset", asset),
				slog.String("event_ticker", eventTicker),
				slog.String("error", err.Error()))
		}
	}
}

// poll fetches the event's markets and rebuilds the asset's ladder. Depth is
// read from the orderbook only for sides whose ask is inside (0, 1); a
// priced-out side cannot form a pair so its book is not worth a request.
func (s *KalshiStream) poll(ctx context.Context, asset, eventTicker string) error {
	_, markets, err := s.client.GetEventMarkets(ctx, eventTicker)
	if err != nil {
		return err
	}
	if len(markets) == 0 {
		return domain.ErrNoMarkets
	}

	ladder := make([]domain.StrikeQuote, 0, len(markets))
	for _, m := range markets {
		// Markets without a floor strike (absent or malformed field) cannot be
		// matched against a reference price.
		if m.FloorStrike <= 0 {
			continue
		}
		sq := domain.StrikeQuote{
			Ticker:   m.Ticker,
			Strike:   m.FloorStrike,
			Subtitle: m.Subtitle,
			Yes: domain.Quote{
				Ask: m.YesAskDollars(),
				Bid: m.YesBidDollars(),
			},
			No: domain.Quote{
				Ask: m.NoAskDollars(),
				Bid: m.NoBidDollars(),
			},
		}

		if sq.Yes.Valid() || sq.No.Valid() {
			book, err := s.client.GetOrderbook(ctx, m.Ticker)
			if err != nil {
				s.logger.Warn("orderbook fetch failed",
					slog.String("asset", asset),
					slog.String("ticker", m.Ticker),
					slog.String("error", err.Error()))
			} else {
				sq.Yes.Size = book.YesAskDepth()
				sq.No.Size = book.NoAskDepth()
			}
		}

		ladder = append(ladder, sq)
	}

	sort.Slice(ladder, func(i, j int) bool { return ladder[i].Strike < ladder[j].Strike })

	s.mu.Lock()
	// The target may have rolled over mid-poll; never resurrect old quotes.
	if s.targets[asset] == eventTicker {
		s.quotes[asset] = ladder
	}
	s.mu.Unlock()
	return nil
}
