// Package indicator provides technical indicator calculations over OHLCV
// series data.
//
// All functions are pure and deterministic: they take price slices, do no
// I/O, and tolerate short input by degrading to a documented neutral value
// instead of failing. Functions that need a minimum history return an ok
// flag so callers can label the result as insufficient.
package indicator

import "math"

// Default periods for the standard indicator set.
const (
	RSIPeriod       = 14
	StochPeriod     = 14
	ATRPeriod       = 14
	ADXPeriod       = 14
	CCIPeriod       = 20
	BollingerPeriod = 20
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
)

// mean returns the arithmetic mean of values. Zero for empty input.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev returns the population standard deviation of the last `period`
// values (all values if fewer are available).
func stddev(values []float64, period int) float64 {
	window := tail(values, period)
	if len(window) == 0 {
		return 0
	}
	m := mean(window)
	variance := 0.0
	for _, v := range window {
		d := v - m
		variance += d * d
	}
	variance /= float64(len(window))
	return math.Sqrt(variance)
}

// meanAbsDev returns the mean absolute deviation of values around center.
func meanAbsDev(values []float64, center float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += math.Abs(v - center)
	}
	return sum / float64(len(values))
}

// tail returns the last n elements of values (the whole slice if shorter).
func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// typicalPrices returns (high+low+close)/3 per bar.
// Slices must be equal length; the shortest wins if they are not.
func typicalPrices(highs, lows, closes []float64) []float64 {
	n := len(closes)
	if len(highs) < n {
		n = len(highs)
	}
	if len(lows) < n {
		n = len(lows)
	}
	tp := make([]float64, n)
	for i := 0; i < n; i++ {
		tp[i] = (highs[i] + lows[i] + closes[i]) / 3.0
	}
	return tp
}
