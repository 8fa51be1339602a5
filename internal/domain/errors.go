package domain

import "errors"

// Sentinel errors shared across packages. Nothing in the pipeline treats
// these as fatal; every path degrades to "try again next cycle".
var (
	// ErrUnknownAsset is returned when an asset symbol has no configuration.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrNoMarkets is returned when a venue lists no markets for a window.
	ErrNoMarkets = errors.New("no markets for window")

	// ErrRateLimited marks an HTTP 429 from a venue; the transport layer
	// retries it with backoff, other callers skip the cycle.
	ErrRateLimited = errors.New("rate limited")
)
