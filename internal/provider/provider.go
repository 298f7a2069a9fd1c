// Package provider implements market-data access: a kline REST client,
// a circuit breaker guarding it, and a WebSocket kline stream.
package provider

import (
	"context"
	"fmt"

	"cryptotrackerv1/internal/model"
)

// KlineProvider fetches OHLCV kline series from an exchange.
type KlineProvider interface {
	// GetKlines fetches up to limit candles for pair at the given timeframe,
	// oldest first. Fails with *FetchError on provider or payload problems.
	GetKlines(ctx context.Context, pair string, tf model.Timeframe, limit int) ([]model.Candle, error)
}

// FetchError wraps any network/provider failure or malformed response.
// Non-fatal by contract: the orchestrator falls back to cache or synthetic
// data instead of propagating it.
type FetchError struct {
	Pair  string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Pair, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }
