package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV sample from the market-data provider.
// TS is milliseconds since epoch (the provider's kline open time).
type Candle struct {
	TS     int64   `json:"ts"` // ms epoch, bucket open time
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Valid reports whether the candle satisfies low <= open,close <= high.
func (c *Candle) Valid() bool {
	return c.Low <= c.Open && c.Open <= c.High &&
		c.Low <= c.Close && c.Close <= c.High &&
		c.Low <= c.High
}

// Time returns the candle open time as a time.Time (UTC).
func (c *Candle) Time() time.Time {
	return time.UnixMilli(c.TS).UTC()
}

// Series is an ordered sequence of candles for one (symbol, timeframe) pair.
// Candles are strictly increasing in TS. A series is replaced wholesale on
// each refresh, never merged incrementally.
type Series struct {
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Candles   []Candle  `json:"candles"`
}

// Key returns "symbol:timeframe", the cache/orchestrator key for this series.
func (s *Series) Key() string {
	return s.Symbol + ":" + string(s.Timeframe)
}

// Len returns the number of candles.
func (s *Series) Len() int { return len(s.Candles) }

// Closes returns the close prices in order.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i := range s.Candles {
		out[i] = s.Candles[i].Close
	}
	return out
}

// Highs returns the high prices in order.
func (s *Series) Highs() []float64 {
	out := make([]float64, len(s.Candles))
	for i := range s.Candles {
		out[i] = s.Candles[i].High
	}
	return out
}

// Lows returns the low prices in order.
func (s *Series) Lows() []float64 {
	out := make([]float64, len(s.Candles))
	for i := range s.Candles {
		out[i] = s.Candles[i].Low
	}
	return out
}

// Last returns the most recent candle. Callers must check Len() > 0 first.
func (s *Series) Last() Candle {
	return s.Candles[len(s.Candles)-1]
}

// JSON returns the JSON-encoded series (ignoring errors for cache-path usage).
func (s *Series) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
