package indicator

// MACD computes the Moving Average Convergence Divergence line, its signal
// line, and the histogram.
//
// Line = EMA(12) - EMA(26) of the closes. The signal is EMA(9) over the
// MACD-line series, where each point of that series is the line recomputed
// on the close prefix ending at that bar. Histogram = line - signal.
//
// The line needs 26 closes (lineOK); the signal needs 9 more on top for a
// fully seeded EMA (signalOK). Between the two thresholds the line is
// reported alone with signal and histogram zeroed.
func MACD(closes []float64) (line, signal, histogram float64, lineOK, signalOK bool) {
	if len(closes) < MACDSlow {
		return 0, 0, 0, false, false
	}
	if len(closes) < MACDSlow+MACDSignal {
		line = EMA(closes, MACDFast) - EMA(closes, MACDSlow)
		return line, 0, 0, true, false
	}

	macdSeries := make([]float64, 0, len(closes)-MACDSlow+1)
	for i := MACDSlow; i <= len(closes); i++ {
		prefix := closes[:i]
		macdSeries = append(macdSeries, EMA(prefix, MACDFast)-EMA(prefix, MACDSlow))
	}

	line = macdSeries[len(macdSeries)-1]
	signal = EMA(macdSeries, MACDSignal)
	return line, signal, line - signal, true, true
}
