package indicator

// SMA returns the simple moving average of the last `period` closes.
// A series shorter than the period degrades to the average of whatever is
// available, so callers always get a usable price-scale value.
func SMA(closes []float64, period int) float64 {
	if len(closes) == 0 || period <= 0 {
		return 0
	}
	return mean(tail(closes, period))
}

// EMA returns the exponential moving average over closes with the standard
// multiplier k = 2/(period+1). The seed is SMA(period) over the first
// `period` values; the recurrence EMA = close*k + prev*(1-k) is applied
// forward through the rest. Shorter series fall back to SMA of available.
func EMA(closes []float64, period int) float64 {
	if len(closes) == 0 || period <= 0 {
		return 0
	}
	if len(closes) < period {
		return SMA(closes, period)
	}

	k := 2.0 / float64(period+1)
	ema := mean(closes[:period])
	for _, c := range closes[period:] {
		ema = c*k + ema*(1-k)
	}
	return ema
}
