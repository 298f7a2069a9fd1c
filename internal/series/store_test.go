package series

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"cryptotrackerv1/internal/model"
	"cryptotrackerv1/internal/provider"
)

type stubProvider struct {
	candles  []model.Candle
	err      error
	gotPair  string
	gotLimit int
}

func (p *stubProvider) GetKlines(ctx context.Context, pair string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	p.gotPair = pair
	p.gotLimit = limit
	return p.candles, p.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func candle(ts int64, close float64) model.Candle {
	return model.Candle{TS: ts, Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 1}
}

func candles(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		out[i] = candle(int64(i+1)*1000, 50+float64(i))
	}
	return out
}

func TestFetch_ResolvesSymbolToPair(t *testing.T) {
	p := &stubProvider{candles: candles(20)}
	st := NewStore(p, discardLogger())

	s, err := st.Fetch(context.Background(), "BTC", model.TF1h, 100)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.gotPair != "BTCUSDT" {
		t.Errorf("pair: got %q, want BTCUSDT", p.gotPair)
	}
	if s.Symbol != "BTC" || s.Timeframe != model.TF1h {
		t.Errorf("series identity: got %s/%s", s.Symbol, s.Timeframe)
	}
}

func TestFetch_DefaultsLimit(t *testing.T) {
	p := &stubProvider{candles: candles(20)}
	st := NewStore(p, discardLogger())

	if _, err := st.Fetch(context.Background(), "BTC", model.TF1h, 0); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.gotLimit != DefaultLimit {
		t.Errorf("limit: got %d, want %d", p.gotLimit, DefaultLimit)
	}
}

func TestFetch_NormalizesOutOfOrderAndInvalidRows(t *testing.T) {
	rows := candles(20)
	// Shuffle one row out of order, inject an invalid row and a duplicate.
	rows[3], rows[7] = rows[7], rows[3]
	rows = append(rows,
		model.Candle{TS: 50_000, Open: 51, High: 50, Low: 52, Close: 51}, // high < low
		candle(5000, 99), // duplicate timestamp
	)
	p := &stubProvider{candles: rows}
	st := NewStore(p, discardLogger())

	s, err := st.Fetch(context.Background(), "ETH", model.TF1h, 100)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if s.Len() != 20 {
		t.Fatalf("candles: got %d, want 20 after normalization", s.Len())
	}
	for i := 1; i < s.Len(); i++ {
		if s.Candles[i].TS <= s.Candles[i-1].TS {
			t.Fatalf("candle %d: TS %d not strictly increasing", i, s.Candles[i].TS)
		}
	}
}

func TestFetch_ShortSeriesIsError(t *testing.T) {
	// A handful of valid candles is not enough to seed any indicator; the
	// fetch must fail so the caller degrades instead of caching a thin
	// series as live.
	p := &stubProvider{candles: candles(MinCandles - 1)}
	st := NewStore(p, discardLogger())

	_, err := st.Fetch(context.Background(), "BTC", model.TF1h, 100)
	var fe *provider.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error: got %v, want *provider.FetchError below %d candles", err, MinCandles)
	}

	p.candles = candles(MinCandles)
	if _, err := st.Fetch(context.Background(), "BTC", model.TF1h, 100); err != nil {
		t.Errorf("Fetch at the minimum: %v", err)
	}
}

func TestFetch_ProviderErrorPassesThrough(t *testing.T) {
	p := &stubProvider{err: &provider.FetchError{Pair: "BTCUSDT", Cause: errors.New("timeout")}}
	st := NewStore(p, discardLogger())

	_, err := st.Fetch(context.Background(), "BTC", model.TF1h, 100)
	var fe *provider.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error: got %v, want *provider.FetchError", err)
	}
}

func TestFetch_AllRowsInvalidIsError(t *testing.T) {
	p := &stubProvider{candles: []model.Candle{
		{TS: 1000, Open: 10, High: 5, Low: 20, Close: 10},
	}}
	st := NewStore(p, discardLogger())

	_, err := st.Fetch(context.Background(), "BTC", model.TF1h, 100)
	var fe *provider.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error: got %v, want *provider.FetchError for empty normalized series", err)
	}
}
