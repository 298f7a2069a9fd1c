package indicator

import "math"

// ADX estimates trend strength from Wilder-smoothed directional movement.
//
// +DM/-DM are taken from consecutive high/low deltas, smoothed together
// with the true range, then DX = |+DI - -DI| / (+DI + -DI) * 100.
// This reports the final DX directly as the ADX value; the textbook pass
// that additionally Wilder-smooths the DX series is deliberately skipped,
// matching the bounded-history setting where at most ~200 bars exist.
//
// Requires 2*period bars; shorter input returns the neutral default 25
// with ok=false.
func ADX(highs, lows, closes []float64, period int) (float64, bool) {
	n := len(closes)
	if period <= 0 || n < 2*period || len(highs) < n || len(lows) < n {
		return 25.0, false
	}

	var smTR, smPlusDM, smMinusDM float64
	p := float64(period)

	for i := 1; i < n; i++ {
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]

		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}
		tr := trueRange(highs[i], lows[i], closes[i-1])

		if i <= period {
			smTR += tr
			smPlusDM += plusDM
			smMinusDM += minusDM
			continue
		}
		// Wilder smoothing of the running sums
		smTR = smTR - smTR/p + tr
		smPlusDM = smPlusDM - smPlusDM/p + plusDM
		smMinusDM = smMinusDM - smMinusDM/p + minusDM
	}

	if smTR == 0 {
		return 0, true
	}
	plusDI := smPlusDM / smTR * 100.0
	minusDI := smMinusDM / smTR * 100.0
	if plusDI+minusDI == 0 {
		return 0, true
	}
	dx := math.Abs(plusDI-minusDI) / (plusDI + minusDI) * 100.0
	return dx, true
}
