package indicator

// StochasticK computes the stochastic oscillator %K over the trailing
// `period` bars: (close - lowestLow) / (highestHigh - lowestLow) * 100.
//
// A flat window (highestHigh == lowestLow) returns exactly 50 rather than
// dividing by zero. Input shorter than the period also returns the neutral
// 50 with ok=false.
func StochasticK(highs, lows, closes []float64, period int) (float64, bool) {
	n := len(closes)
	if period <= 0 || n < period || len(highs) < period || len(lows) < period {
		return 50.0, false
	}

	highestHigh := highs[len(highs)-period]
	for _, h := range highs[len(highs)-period:] {
		if h > highestHigh {
			highestHigh = h
		}
	}
	lowestLow := lows[len(lows)-period]
	for _, l := range lows[len(lows)-period:] {
		if l < lowestLow {
			lowestLow = l
		}
	}

	if highestHigh == lowestLow {
		return 50.0, true
	}
	k := (closes[n-1] - lowestLow) / (highestHigh - lowestLow) * 100.0
	return k, true
}

// WilliamsR computes Williams %R, which is the stochastic %K shifted down
// by 100 into the [-100, 0] range.
func WilliamsR(highs, lows, closes []float64, period int) (float64, bool) {
	k, ok := StochasticK(highs, lows, closes, period)
	return k - 100.0, ok
}
