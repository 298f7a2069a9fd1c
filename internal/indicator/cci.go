package indicator

// CCI computes the Commodity Channel Index over the trailing `period` bars:
//
//	CCI = (TP - SMA(TP, period)) / (0.015 * meanAbsDev(TP, period))
//
// where TP is the typical price (high+low+close)/3. A zero mean deviation
// (all typical prices equal) returns 0 rather than dividing by zero.
// Shorter input returns 0 with ok=false.
func CCI(highs, lows, closes []float64, period int) (float64, bool) {
	tp := typicalPrices(highs, lows, closes)
	if period <= 0 || len(tp) < period {
		return 0, false
	}

	window := tp[len(tp)-period:]
	smaTP := mean(window)
	dev := meanAbsDev(window, smaTP)
	if dev == 0 {
		return 0, true
	}
	return (window[len(window)-1] - smaTP) / (0.015 * dev), true
}
