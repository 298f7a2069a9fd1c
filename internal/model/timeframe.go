package model

import "time"

// Timeframe is a supported kline interval, using the exchange token format.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
	TF1w  Timeframe = "1w"
)

var tfDurations = map[Timeframe]time.Duration{
	TF1m:  time.Minute,
	TF5m:  5 * time.Minute,
	TF15m: 15 * time.Minute,
	TF1h:  time.Hour,
	TF4h:  4 * time.Hour,
	TF1d:  24 * time.Hour,
	TF1w:  7 * 24 * time.Hour,
}

// Valid reports whether tf is a supported timeframe.
func (tf Timeframe) Valid() bool {
	_, ok := tfDurations[tf]
	return ok
}

// Duration returns the bucket duration of the timeframe. Zero if invalid.
func (tf Timeframe) Duration() time.Duration {
	return tfDurations[tf]
}

// Intraday reports whether the timeframe is shorter than one hour.
// Intraday bundles get the short "live" cache TTL.
func (tf Timeframe) Intraday() bool {
	return tfDurations[tf] > 0 && tfDurations[tf] < time.Hour
}

// ParseTimeframe validates s and returns it as a Timeframe.
func ParseTimeframe(s string) (Timeframe, bool) {
	tf := Timeframe(s)
	return tf, tf.Valid()
}
