package model

import (
	"encoding/json"
	"time"
)

// DataSource tags where a bundle's values came from. Consumers must be able
// to tell live data from fallbacks, so the tag is carried on every bundle.
type DataSource string

const (
	SourceLive      DataSource = "live"      // computed from a fresh provider fetch
	SourceCached    DataSource = "cached"    // previously computed, served from cache
	SourceSynthetic DataSource = "synthetic" // random placeholder, no real data behind it
)

// Status labels applied to indicator values.
const (
	StatusOverbought     = "overbought"
	StatusOversold       = "oversold"
	StatusNeutral        = "neutral"
	StatusAboveAverage   = "above average"
	StatusBelowAverage   = "below average"
	StatusBullish        = "bullish"
	StatusBearish        = "bearish"
	StatusStrongTrend    = "strong trend"
	StatusModerateTrend  = "moderate"
	StatusWeakTrend      = "weak trend"
	StatusHighVolatility = "high volatility"
	StatusLowVolatility  = "low volatility"
	StatusNormal         = "normal"
	StatusAboveUpper     = "above upper band"
	StatusBelowLower     = "below lower band"
	StatusInsideBands    = "inside bands"
	StatusInsufficient   = "insufficient data"
)

// Canonical indicator names used as bundle map keys.
const (
	IndRSI       = "RSI_14"
	IndSMA20     = "SMA_20"
	IndSMA50     = "SMA_50"
	IndEMA12     = "EMA_12"
	IndEMA26     = "EMA_26"
	IndMACD      = "MACD"
	IndStochK    = "STOCH_K"
	IndWilliamsR = "WILLIAMS_R"
	IndBollinger = "BOLLINGER"
	IndATR       = "ATR_14"
	IndCCI       = "CCI_20"
	IndADX       = "ADX_14"
)

// IndicatorResult is one named indicator's computed output.
// Value is formatted for display; Raw keeps full float64 precision so a
// downstream recomputation (e.g. a recursive EMA) never sees rounded input.
type IndicatorResult struct {
	Value  string  `json:"value"`
	Raw    float64 `json:"raw"`
	Status string  `json:"status"`
	Time   string  `json:"time"`
}

// IndicatorBundle is the full indicator set for one (symbol, timeframe),
// produced by a single computation pass. Bundles are immutable once stored;
// a newer computation supersedes, never mutates.
type IndicatorBundle struct {
	Symbol     string                     `json:"symbol"`
	Timeframe  Timeframe                  `json:"timeframe"`
	ComputedAt time.Time                  `json:"computed_at"`
	DataPoints int                        `json:"data_points"`
	Source     DataSource                 `json:"source"`
	Indicators map[string]IndicatorResult `json:"indicators"`
}

// Key returns "symbol:timeframe".
func (b *IndicatorBundle) Key() string {
	return b.Symbol + ":" + string(b.Timeframe)
}

// Live reports whether the bundle was computed from a fresh fetch.
func (b *IndicatorBundle) Live() bool { return b.Source == SourceLive }

// JSON returns the JSON-encoded bundle.
func (b *IndicatorBundle) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}
