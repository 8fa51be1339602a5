// Package httpx provides the shared HTTP retry policy used by the venue
// clients: exponential backoff with jitter on rate-limit responses, rotating
// the outbound identity (User-Agent and header set) between attempts.
package httpx

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/alanyoungcy/arbtracker/internal/domain"
)

// Identity is one outbound header set. Rotating identities between retry
// attempts reduces the chance of sustained blocking by venue edge caches.
type Identity struct {
	UserAgent string
	Headers   map[string]string
}

// DefaultIdentities is the stock rotation pool.
var DefaultIdentities = []Identity{
	{UserAgent: "ArbTracker/1.0", Headers: map[string]string{"Accept": "application/json"}},
	{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Headers:   map[string]string{"Accept": "application/json", "Accept-Language": "en-US,en;q=0.9"},
	},
	{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		Headers:   map[string]string{"Accept": "application/json"},
	},
}

// RetryPolicy describes how rate-limited requests are retried. It is an
// explicit policy object, independent of business logic, so it can be tested
// with a fake sleeper and transport.
type RetryPolicy struct {
	// MaxAttempts is the number of retries after the initial attempt.
	MaxAttempts int

	// BaseDelay is doubled on each attempt: BaseDelay * 2^attempt.
	BaseDelay time.Duration

	// JitterMax bounds the random jitter added to every delay.
	JitterMax time.Duration

	// Identities is the header-set rotation pool. Empty means no rotation.
	Identities []Identity

	// Sleep is the wait function; nil means time.Sleep. Tests inject a
	// recorder here.
	Sleep func(time.Duration)

	// rand source for jitter; nil means the global source.
	Rand *rand.Rand
}

// DefaultPolicy returns the policy mandated for venue-A polling: up to 5
// retries, exponential backoff from base, jitter up to 500ms, identity
// rotation.
func DefaultPolicy(base time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   base,
		JitterMax:   500 * time.Millisecond,
		Identities:  DefaultIdentities,
	}
}

// Delay returns the backoff for the given zero-based attempt number,
// including jitter.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30 // cap the shift
	}
	d := p.BaseDelay * time.Duration(1<<uint(attempt))
	if p.JitterMax > 0 {
		if p.Rand != nil {
			d += time.Duration(p.Rand.Int63n(int64(p.JitterMax)))
		} else {
			d += time.Duration(rand.Int63n(int64(p.JitterMax)))
		}
	}
	return d
}

// IdentityFor returns the header set for the given attempt, cycling through
// the pool.
func (p RetryPolicy) IdentityFor(attempt int) Identity {
	if len(p.Identities) == 0 {
		return Identity{}
	}
	return p.Identities[attempt%len(p.Identities)]
}

func (p RetryPolicy) sleep(d time.Duration) {
	if p.Sleep != nil {
		p.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Doer is the subset of *http.Client the retry loop needs.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Do executes the request built by build, retrying on HTTP 429 per the
// policy. build is called once per attempt so each request carries fresh
// identity headers. Any response other than 429 is returned to the caller
// without retry; transport errors likewise, since the next scheduled poll
// will try again.
func Do(ctx context.Context, client Doer, policy RetryPolicy, build func() (*http.Request, error)) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("httpx: build request: %w", err)
		}
		req = req.WithContext(ctx)

		id := policy.IdentityFor(attempt)
		if id.UserAgent != "" {
			req.Header.Set("User-Agent", id.UserAgent)
		}
		for k, v := range id.Headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		resp.Body.Close()

		if attempt >= policy.MaxAttempts {
			return nil, fmt.Errorf("httpx: %s after %d attempts: %w",
				req.URL.Host, attempt+1, domain.ErrRateLimited)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		policy.sleep(policy.Delay(attempt))
	}
}
