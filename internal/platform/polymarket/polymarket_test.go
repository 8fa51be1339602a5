package polymarket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexDecoding(t *testing.T) {
	var m struct {
		Active flexBool  `json:"active"`
		Price  flexFloat `json:"price"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"active": true, "price": 0.52}`), &m))
	assert.True(t, bool(m.Active))
	assert.Equal(t, flexFloat(0.52), m.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"active": "true", "price": "0.48"}`), &m))
	assert.True(t, bool(m.Active))
	assert.Equal(t, flexFloat(0.48), m.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"active": "false", "price": ""}`), &m))
	assert.False(t, bool(m.Active))
	assert.Zero(t, m.Price)

	assert.Error(t, json.Unmarshal([]byte(`{"price": "abc"}`), &m))
}

func TestOutcomeTokens(t *testing.T) {
	m := APIMarket{
		ID:           "512929",
		Outcomes:     `["Up","Down"]`,
		ClobTokenIDs: `["111","222"]`,
	}

	tokens, err := m.OutcomeTokens()

	require.NoError(t, err)
	assert.Equal(t, []OutcomeToken{
		{TokenID: "111", Outcome: "Up"},
		{TokenID: "222", Outcome: "Down"},
	}, tokens)
}

func TestOutcomeTokens_SchemaViolations(t *testing.T) {
	cases := map[string]APIMarket{
		"mismatched lengths": {Outcomes: `["Up","Down"]`, ClobTokenIDs: `["111"]`},
		"empty arrays":       {Outcomes: `[]`, ClobTokenIDs: `[]`},
		"invalid json":       {Outcomes: `not json`, ClobTokenIDs: `["111"]`},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.OutcomeTokens()
			assert.Error(t, err)
		})
	}
}

func TestGetMarketsBySlug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "bitcoin-up-or-down-january-9-8pm-et", r.URL.Query().Get("slug"))
		w.Write([]byte(`[{
			"id": "512929",
			"question": "Bitcoin Up or Down - January 9, 8PM ET",
			"slug": "bitcoin-up-or-down-january-9-8pm-et",
			"active": "true",
			"outcomes": "[\"Up\",\"Down\"]",
			"outcomePrices": "[\"0.52\",\"0.48\"]",
			"clobTokenIds": "[\"111\",\"222\"]"
		}]`))
	}))
	t.Cleanup(srv.Close)

	markets, err := NewGammaClient(srv.URL).GetMarketsBySlug(
		context.Background(), "bitcoin-up-or-down-january-9-8pm-et")

	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.True(t, bool(markets[0].Active))
	tokens, err := markets[0].OutcomeTokens()
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}

func TestGetMarketsBySlug_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := NewGammaClient(srv.URL).GetMarketsBySlug(context.Background(), "slug")

	assert.ErrorContains(t, err, "502")
}

func TestDecodeChanges_PriceChangeBatch(t *testing.T) {
	raw := []byte(`{
		"event_type": "price_change",
		"price_changes": [
			{"asset_id": "111", "best_ask": "0.52", "best_bid": "0.50", "size": "300"},
			{"asset_id": "", "best_ask": "0.1"},
			{"asset_id": "222", "best_ask": 0.48, "best_bid": 0.46, "size": 150}
		]
	}`)

	changes := decodeChanges(raw)

	require.Len(t, changes, 2, "entries without asset_id are dropped")
	assert.Equal(t, "111", changes[0].AssetID)
	assert.Equal(t, 0.52, changes[0].Ask())
	assert.Equal(t, 300.0, changes[0].Depth())
	assert.Equal(t, "222", changes[1].AssetID)
	assert.Equal(t, 0.48, changes[1].Ask())
}

func TestDecodeChanges_LegacySingle(t *testing.T) {
	changes := decodeChanges([]byte(`{"asset_id": "111", "price": "0.37", "size": "42"}`))

	require.Len(t, changes, 1)
	assert.Equal(t, 0.37, changes[0].Ask())
	assert.Equal(t, 0.37, changes[0].Bid())
	assert.Equal(t, 42.0, changes[0].Depth())
}

func TestDecodeChanges_Garbage(t *testing.T) {
	assert.Empty(t, decodeChanges([]byte(`not json`)))
	assert.Empty(t, decodeChanges([]byte(`{"event_type": "book"}`)))
	assert.Empty(t, decodeChanges([]byte(`{"asset_id": "111"}`)), "no price, no update")
}
