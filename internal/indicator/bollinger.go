package indicator

// BollingerBands computes the middle SMA(period) band and the upper/lower
// bands at +-width standard deviations. Requires `period` closes; shorter
// input returns zeros with ok=false.
func BollingerBands(closes []float64, period int, width float64) (upper, middle, lower float64, ok bool) {
	if period <= 0 || len(closes) < period {
		return 0, 0, 0, false
	}
	middle = SMA(closes, period)
	sd := stddev(closes, period)
	return middle + width*sd, middle, middle - width*sd, true
}

// BollingerPosition classifies price against the bands.
func BollingerPosition(price, upper, lower float64) string {
	switch {
	case price > upper:
		return "above upper band"
	case price < lower:
		return "below lower band"
	default:
		return "inside bands"
	}
}
