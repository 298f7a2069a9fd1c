// Package series fetches and normalizes OHLCV series from a kline provider.
package series

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"cryptotrackerv1/internal/indicator"
	"cryptotrackerv1/internal/model"
	"cryptotrackerv1/internal/provider"
)

// DefaultLimit requests enough history for the largest indicator window
// plus smoothing warm-up.
const DefaultLimit = 100

// MinCandles is the smallest normalized series a fetch may return. Below
// this even the shortest-window indicators (period 14 plus one seed bar)
// cannot compute, so the fetch counts as failed and the caller falls back.
const MinCandles = indicator.RSIPeriod + 1

// Store resolves symbols to exchange pairs, fetches klines, and normalizes
// the rows into a valid Series. It never substitutes data on failure; the
// caller owns fallback policy.
type Store struct {
	provider provider.KlineProvider
	log      *slog.Logger
}

// NewStore creates a Store over the given provider.
func NewStore(p provider.KlineProvider, log *slog.Logger) *Store {
	return &Store{provider: p, log: log}
}

// Fetch retrieves up to limit candles for (symbol, timeframe). Fails with
// *provider.FetchError on provider errors or when fewer than MinCandles
// usable rows survive normalization.
func (s *Store) Fetch(ctx context.Context, symbol string, tf model.Timeframe, limit int) (*model.Series, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	pair := model.Pair(symbol)

	candles, err := s.provider.GetKlines(ctx, pair, tf, limit)
	if err != nil {
		return nil, err
	}

	normalized := normalize(candles)
	if dropped := len(candles) - len(normalized); dropped > 0 {
		s.log.Warn("dropped invalid candles", "symbol", symbol, "tf", tf, "dropped", dropped)
	}
	if len(normalized) < MinCandles {
		return nil, &provider.FetchError{
			Pair:  pair,
			Cause: fmt.Errorf("only %d usable candles in payload, need %d", len(normalized), MinCandles),
		}
	}

	return &model.Series{Symbol: symbol, Timeframe: tf, Candles: normalized}, nil
}

// normalize sorts candles by timestamp and drops rows that violate the OHLC
// invariant or repeat a timestamp, so downstream math sees a strictly
// increasing, well-formed series.
func normalize(candles []model.Candle) []model.Candle {
	sort.Slice(candles, func(i, j int) bool { return candles[i].TS < candles[j].TS })

	out := make([]model.Candle, 0, len(candles))
	var lastTS int64 = -1
	for _, c := range candles {
		if !c.Valid() || c.TS <= lastTS {
			continue
		}
		out = append(out, c)
		lastTS = c.TS
	}
	return out
}
