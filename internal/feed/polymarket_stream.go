package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/arbtracker/internal/domain"
	"github.com/alanyoungcy/arbtracker/internal/platform/polymarket"
)

const reconnectWait = time.Second

// gammaAPI is the slice of the Gamma client the stream needs.
type gammaAPI interface {
	GetMarketsBySlug(ctx context.Context, slug string) ([]polymarket.APIMarket, error)
}

// dialFunc opens a market-channel subscription over a token set.
type dialFunc func(ctx context.Context, wsURL string, tokenIDs []string) (*polymarket.WSConn, error)

// tokenRef maps a CLOB token id back to the asset and outcome it prices.
type tokenRef struct {
	asset   string
	outcome string
}

// PolymarketStream holds one persistent CLOB WebSocket subscription covering
// every tracked asset's outcome tokens. Adding or removing an asset changes
// the token set, which tears the connection down and resubscribes with the
// full new set; quotes survive the reconnect.
type PolymarketStream struct {
	gamma  gammaAPI
	wsURL  string
	dial   dialFunc
	logger *slog.Logger

	mu     sync.RWMutex
	tokens map[string]tokenRef             // token id -> back-reference
	quotes map[string]map[string]domain.Quote // asset -> outcome -> last quote
	gen    uint64                          // bumped whenever the token set changes
	wake   chan struct{}                   // signals the run loop to resubscribe
}

// NewPolymarketStream builds a stream subscribing through the given
// WebSocket endpoint.
func NewPolymarketStream(gamma gammaAPI, wsURL string, logger *slog.Logger) *PolymarketStream {
	return &PolymarketStream{
		gamma:  gamma,
		wsURL:  wsURL,
		dial:   polymarket.DialMarketChannel,
		logger: logger.With(slog.String("component", "polymarket_stream")),
		tokens: make(map[string]tokenRef),
		quotes: make(map[string]map[string]domain.Quote),
		wake:   make(chan struct{}, 1),
	}
}

// Track resolves the slug's outcome tokens through the Gamma API and adds
// them to the subscription set. Tracking the same asset with a new slug
// replaces its tokens and clears its quotes.
func (s *PolymarketStream) Track(ctx context.Context, asset, slug string) error {
	markets, err := s.gamma.GetMarketsBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("feed: resolve slug %q: %w", slug, err)
	}
	if len(markets) == 0 {
		return fmt.Errorf("feed: resolve slug %q: %w", slug, domain.ErrNoMarkets)
	}

	outcomes, err := markets[0].OutcomeTokens()
	if err != nil {
		return fmt.Errorf("feed: resolve slug %q: %w", slug, err)
	}

	s.mu.Lock()
	changed := s.replaceTokensLocked(asset, outcomes)
	s.mu.Unlock()

	if changed {
		s.logger.Info("tracking market",
			slog.String("asset", asset),
			slog.String("slug", slug),
			slog.Int("tokens", len(outcomes)))
		s.signalResubscribe()
	}
	return nil
}

// Untrack removes the asset's tokens from the subscription set and drops
// its quotes.
func (s *PolymarketStream) Untrack(asset string) {
	s.mu.Lock()
	changed := false
	for id, ref := range s.tokens {
		if ref.asset == asset {
			delete(s.tokens, id)
			changed = true
		}
	}
	delete(s.quotes, asset)
	if changed {
		s.gen++
	}
	s.mu.Unlock()

	if changed {
		s.signalResubscribe()
	}
}

// Latest returns the asset's last-seen quote per outcome. Quotes have no
// expiry: the CLOB only pushes on change, so old is not stale.
func (s *PolymarketStream) Latest(asset string) map[string]domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	current := s.quotes[asset]
	if len(current) == 0 {
		return nil
	}
	out := make(map[string]domain.Quote, len(current))
	for outcome, q := range current {
		out[outcome] = q
	}
	return out
}

// Run maintains the subscription until ctx is cancelled, redialing after
// disconnects and whenever the token set changes.
func (s *PolymarketStream) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		gen, tokenIDs := s.snapshotTokens()
		if len(tokenIDs) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.wake:
			case <-time.After(reconnectWait):
			}
			continue
		}

		conn, err := s.dial(ctx, s.wsURL, tokenIDs)
		if err != nil {
			s.logger.Warn("connect failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reconnectWait):
			}
			continue
		}

		s.logger.Info("subscribed", slog.Int("tokens", len(tokenIDs)))
		s.consume(ctx, conn, gen)
		conn.Close()
	}
}

// consume pumps price updates off the connection until ctx ends, the token
// set moves past gen, or the socket fails.
func (s *PolymarketStream) consume(ctx context.Context, conn *polymarket.WSConn, gen uint64) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan polymarket.PriceChange, 64)
	done := make(chan error, 1)
	go func() {
		done <- conn.Listen(connCtx, out)
	}()

	for {
		select {
		case <-ctx.Done():
			cancel()
			<-done
			return
		case err := <-done:
			if err != nil && ctx.Err() == nil {
				s.logger.Warn("connection lost", slog.String("error", err.Error()))
			}
			return
		case change := <-out:
			s.apply(change)
		case <-s.wake:
			if s.currentGen() != gen {
				s.logger.Info("token set changed, resubscribing")
				cancel()
				<-done
				return
			}
		}
	}
}

func (s *PolymarketStream) apply(change polymarket.PriceChange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.tokens[change.AssetID]
	if !ok {
		// Update for a token removed since the last resubscribe.
		return
	}
	byOutcome := s.quotes[ref.asset]
	if byOutcome == nil {
		byOutcome = make(map[string]domain.Quote)
		s.quotes[ref.asset] = byOutcome
	}
	byOutcome[ref.outcome] = domain.Quote{
		Ask:  change.Ask(),
		Bid:  change.Bid(),
		Size: change.Depth(),
	}
}

// replaceTokensLocked swaps the asset's tokens for the given outcome set and
// reports whether the overall set changed. Caller holds s.mu.
func (s *PolymarketStream) replaceTokensLocked(asset string, outcomes []polymarket.OutcomeToken) bool {
	next := make(map[string]tokenRef, len(outcomes))
	for _, ot := range outcomes {
		next[ot.TokenID] = tokenRef{asset: asset, outcome: ot.Outcome}
	}

	same := true
	existing := 0
	for id, ref := range s.tokens {
		if ref.asset != asset {
			continue
		}
		existing++
		if _, ok := next[id]; !ok {
			same = false
		}
	}
	if existing != len(next) {
		same = false
	}
	if same {
		return false
	}

	for id, ref := range s.tokens {
		if ref.asset == asset {
			delete(s.tokens, id)
		}
	}
	for id, ref := range next {
		s.tokens[id] = ref
	}
	delete(s.quotes, asset)
	s.gen++
	return true
}

func (s *PolymarketStream) snapshotTokens() (uint64, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tokens))
	for id := range s.tokens {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return s.gen, ids
}

func (s *PolymarketStream) currentGen() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

func (s *PolymarketStream) signalResubscribe() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
