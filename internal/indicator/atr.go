package indicator

import "math"

// trueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if d := math.Abs(high - prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(low - prevClose); d > tr {
		tr = d
	}
	return tr
}

// ATR computes the Average True Range with Wilder smoothing: the seed is the
// simple mean of the first `period` true ranges, then
// atr = (atr*(period-1) + tr) / period for the rest.
//
// Requires period+1 bars (a true range needs the previous close). Shorter
// input degrades to the mean of the available true ranges with ok=false;
// fewer than two bars yields zero.
func ATR(highs, lows, closes []float64, period int) (float64, bool) {
	n := len(closes)
	if n < 2 || len(highs) < n || len(lows) < n || period <= 0 {
		return 0, false
	}

	trs := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		trs = append(trs, trueRange(highs[i], lows[i], closes[i-1]))
	}

	if len(trs) < period {
		return mean(trs), false
	}

	atr := mean(trs[:period])
	p := float64(period)
	for _, tr := range trs[period:] {
		atr = (atr*(p-1) + tr) / p
	}
	return atr, true
}
