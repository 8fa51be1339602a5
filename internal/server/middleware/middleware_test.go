package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_BurstThenRejects(t *testing.T) {
	h := RateLimit(rate.Limit(1), 2)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "10.0.0.1:50000"

	assert.Equal(t, http.StatusOK, do(h, req).Code)
	assert.Equal(t, http.StatusOK, do(h, req).Code)

	rec := do(h, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestRateLimit_LimitersArePerIP(t *testing.T) {
	h := RateLimit(rate.Limit(1), 1)(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	first.RemoteAddr = "10.0.0.1:50000"
	assert.Equal(t, http.StatusOK, do(h, first).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, first).Code)

	second := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	second.RemoteAddr = "10.0.0.2:50000"
	assert.Equal(t, http.StatusOK, do(h, second).Code, "a fresh IP gets its own bucket")
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:50000"
	assert.Equal(t, "10.0.0.1", extractClientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.9")
	assert.Equal(t, "172.16.0.9", extractClientIP(req))

	// X-Forwarded-For wins, first hop only.
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 172.16.0.9")
	assert.Equal(t, "203.0.113.7", extractClientIP(req))
}

func TestAuth(t *testing.T) {
	h := Auth("sekret")(okHandler())

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
		assert.Equal(t, http.StatusUnauthorized, do(h, req).Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
		req.Header.Set("Authorization", "Bearer nope")
		assert.Equal(t, http.StatusUnauthorized, do(h, req).Code)
	})

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
		req.Header.Set("Authorization", "Bearer sekret")
		assert.Equal(t, http.StatusOK, do(h, req).Code)
	})

	t.Run("x-api-key header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
		req.Header.Set("X-API-Key", "sekret")
		assert.Equal(t, http.StatusOK, do(h, req).Code)
	})

	t.Run("empty key disables auth", func(t *testing.T) {
		open := Auth("")(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
		assert.Equal(t, http.StatusOK, do(open, req).Code)
	})
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://dash.example.com"})(okHandler())

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://dash.example.com")
		rec := do(h, req)
		assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("other origin gets no headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := do(h, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/assets", nil)
		req.Header.Set("Origin", "https://dash.example.com")
		rec := do(h, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
