package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cryptotrackerv1/internal/metrics"
	"cryptotrackerv1/internal/model"
)

const defaultBaseURL = "https://api.binance.com"

// Binance fetches klines from the Binance public REST API through a circuit
// breaker. The endpoint is unauthenticated.
type Binance struct {
	baseURL string
	client  *http.Client
	breaker *CircuitBreaker
	prom    *metrics.Metrics
}

// NewBinance creates a Binance provider. baseURL may be empty for the
// public endpoint; prom may be nil.
func NewBinance(baseURL string, prom *metrics.Metrics) *Binance {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	b := &Binance{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		breaker: NewCircuitBreaker(5, 30*time.Second),
		prom:    prom,
	}
	if prom != nil {
		b.breaker.OnStateChange = func(from, to BreakerState) {
			prom.BreakerState.Set(float64(to))
			if to == BreakerOpen {
				prom.BreakerTrips.Inc()
			}
		}
	}
	return b
}

// Breaker exposes the circuit breaker for health reporting.
func (b *Binance) Breaker() *CircuitBreaker { return b.breaker }

// GetKlines fetches up to limit candles, oldest first.
func (b *Binance) GetKlines(ctx context.Context, pair string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	var candles []model.Candle
	err := b.breaker.Execute(func() error {
		var err error
		candles, err = b.fetch(ctx, pair, tf, limit)
		return err
	})
	if err != nil {
		if b.prom != nil {
			b.prom.FetchErrors.Inc()
		}
		return nil, &FetchError{Pair: pair, Cause: err}
	}
	if b.prom != nil {
		b.prom.FetchesTotal.Inc()
	}
	return candles, nil
}

func (b *Binance) fetch(ctx context.Context, pair string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("symbol", pair)
	q.Set("interval", string(tf))
	q.Set("limit", strconv.Itoa(limit))
	endpoint := b.baseURL + "/api/v3/klines?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return parseKlines(body)
}

// parseKlines decodes the provider's array-of-arrays kline payload:
// [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
// with times as numbers and prices as strings.
func parseKlines(body []byte) ([]model.Candle, error) {
	var rows [][]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("malformed kline payload: %w", err)
	}

	candles := make([]model.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("malformed kline row %d: %d fields", i, len(row))
		}
		tsNum, ok := row[0].(json.Number)
		if !ok {
			return nil, fmt.Errorf("malformed kline row %d: open time %v", i, row[0])
		}
		ts, err := tsNum.Int64()
		if err != nil {
			return nil, fmt.Errorf("malformed kline row %d: open time: %w", i, err)
		}
		vals := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			v, err := toFloat(row[j])
			if err != nil {
				return nil, fmt.Errorf("malformed kline row %d field %d: %w", i, j, err)
			}
			vals[j-1] = v
		}
		candles = append(candles, model.Candle{
			TS:     ts,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return candles, nil
}

// toFloat accepts either a JSON number or a string-encoded price.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unexpected field type %T", v)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
