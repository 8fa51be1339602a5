package feed

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbtracker/internal/domain"
	"github.com/alanyoungcy/arbtracker/internal/platform/kalshi"
)

type fakeKalshi struct {
	markets map[string][]kalshi.Market
	books   map[string]kalshi.Orderbook
	err     error

	eventCalls int
	bookCalls  []string
}

func (f *fakeKalshi) GetEventMarkets(_ context.Context, eventTicker string) (kalshi.Event, []kalshi.Market, error) {
	f.eventCalls++
	if f.err != nil {
		return kalshi.Event{}, nil, f.err
	}
	return kalshi.Event{EventTicker: eventTicker}, f.markets[eventTicker], nil
}

func (f *fakeKalshi) GetOrderbook(_ context.Context, ticker string) (kalshi.Orderbook, error) {
	f.bookCalls = append(f.bookCalls, ticker)
	return f.books[ticker], nil
}

func newKalshiStreamForTest(client kalshiAPI) *KalshiStream {
	return NewKalshiStream(client, time.Second, slog.New(slog.DiscardHandler))
}

func TestKalshiStream_PollBuildsAscendingLadder(t *testing.T) {
	fake := &fakeKalshi{
		markets: map[string][]kalshi.Market{
			"KXBTCD-26JAN09": {
				{Ticker: "KXBTCD-26JAN0921-T96000", FloorStrike: 96000, YesAsk: 5, NoAsk: 97},
				{Ticker: "KXBTCD-26JAN0921-T94000", FloorStrike: 94000, YesAsk: 95, NoAsk: 7},
			},
		},
		books: map[string]kalshi.Orderbook{
			"KXBTCD-26JAN0921-T94000": {
				Yes: []kalshi.PriceLevel{{PriceCents: 93, Quantity: 120}},
				No:  []kalshi.PriceLevel{{PriceCents: 5, Quantity: 40}},
			},
		},
	}
	s := newKalshiStreamForTest(fake)
	s.Track("BTC", "KXBTCD-26JAN09")

	s.pollAll(context.Background())

	ladder := s.Latest("BTC")
	require.Len(t, ladder, 2)
	assert.Equal(t, 94000.0, ladder[0].Strike)
	assert.Equal(t, 96000.0, ladder[1].Strike)
	assert.Equal(t, 0.95, ladder[0].Yes.Ask)
	assert.Equal(t, 0.07, ladder[0].No.Ask)
	assert.Equal(t, 40.0, ladder[0].Yes.Size)  // quantity at best no bid
	assert.Equal(t, 120.0, ladder[0].No.Size) // quantity at best yes bid
}

func TestKalshiStream_SkipsOrderbookForPricedOutMarkets(t *testing.T) {
	fake := &fakeKalshi{
		markets: map[string][]kalshi.Market{
			"EV": {
				// Both asks outside (0,1): no tradeable side, no book fetch.
				{Ticker: "EV-T1", FloorStrike: 1, YesAsk: 100, NoAsk: 0},
			},
		},
	}
	s := newKalshiStreamForTest(fake)
	s.Track("BTC", "EV")

	s.pollAll(context.Background())

	assert.Empty(t, fake.bookCalls)
	ladder := s.Latest("BTC")
	require.Len(t, ladder, 1)
	assert.False(t, ladder[0].Yes.Valid())
	assert.False(t, ladder[0].No.Valid())
}

func TestKalshiStream_DropsMarketsWithoutStrike(t *testing.T) {
	fake := &fakeKalshi{
		markets: map[string][]kalshi.Market{
			"EV": {
				// A listing entry missing its floor strike decodes as zero. It
				// has no price level to compare against and must never reach
				// the engine, where an unbounded gap window would pair it.
				{Ticker: "EV-NOSTRIKE", FloorStrike: 0, YesAsk: 52, NoAsk: 50},
				{Ticker: "EV-T95000", FloorStrike: 95000, YesAsk: 55, NoAsk: 47},
			},
		},
	}
	s := newKalshiStreamForTest(fake)
	s.Track("BTC", "EV")

	s.pollAll(context.Background())

	ladder := s.Latest("BTC")
	require.Len(t, ladder, 1)
	assert.Equal(t, 95000.0, ladder[0].Strike)
	assert.NotContains(t, fake.bookCalls, "EV-NOSTRIKE")
}

func TestKalshiStream_FailedPollKeepsPreviousLadder(t *testing.T) {
	fake := &fakeKalshi{
		markets: map[string][]kalshi.Market{
			"EV": {{Ticker: "EV-T1", FloorStrike: 100, YesAsk: 50, NoAsk: 52}},
		},
	}
	s := newKalshiStreamForTest(fake)
	s.Track("BTC", "EV")
	s.pollAll(context.Background())
	require.Len(t, s.Latest("BTC"), 1)

	fake.err = errors.New("kalshi down")
	s.pollAll(context.Background())

	assert.Len(t, s.Latest("BTC"), 1, "stale ladder survives a failed poll")
}

func TestKalshiStream_RetrackClearsQuotes(t *testing.T) {
	fake := &fakeKalshi{
		markets: map[string][]kalshi.Market{
			"EV-OLD": {{Ticker: "EV-OLD-T1", FloorStrike: 100, YesAsk: 50, NoAsk: 52}},
		},
	}
	s := newKalshiStreamForTest(fake)
	s.Track("BTC", "EV-OLD")
	s.pollAll(context.Background())
	require.NotEmpty(t, s.Latest("BTC"))

	s.Track("BTC", "EV-NEW")

	assert.Empty(t, s.Latest("BTC"), "rollover must not serve the previous hour's quotes")
}

func TestKalshiStream_EmptyEventIsAnError(t *testing.T) {
	fake := &fakeKalshi{markets: map[string][]kalshi.Market{}}
	s := newKalshiStreamForTest(fake)

	err := s.poll(context.Background(), "BTC", "EV-EMPTY")

	assert.ErrorIs(t, err, domain.ErrNoMarkets)
}

func TestKalshiStream_Untrack(t *testing.T) {
	fake := &fakeKalshi{
		markets: map[string][]kalshi.Market{
			"EV": {{Ticker: "EV-T1", FloorStrike: 100, YesAsk: 50, NoAsk: 52}},
		},
	}
	s := newKalshiStreamForTest(fake)
	s.Track("BTC", "EV")
	s.pollAll(context.Background())

	s.Untrack("BTC")
	calls := fake.eventCalls
	s.pollAll(context.Background())

	assert.Nil(t, s.Latest("BTC"))
	assert.Equal(t, calls, fake.eventCalls, "untracked assets are not polled")
}
