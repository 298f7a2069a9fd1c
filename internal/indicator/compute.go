package indicator

import (
	"fmt"
	"time"

	"cryptotrackerv1/internal/model"
)

const displayTimeLayout = "2006-01-02 15:04"

// Compute runs the full indicator set over a series and assembles a live
// bundle. Indicators with too little history degrade individually to their
// neutral defaults labeled "insufficient data"; the rest compute normally.
func Compute(s *model.Series, now time.Time) *model.IndicatorBundle {
	closes := s.Closes()
	highs := s.Highs()
	lows := s.Lows()

	var price float64
	displayTime := now.UTC().Format(displayTimeLayout)
	if s.Len() > 0 {
		last := s.Last()
		price = last.Close
		displayTime = last.Time().Format(displayTimeLayout)
	}

	results := make(map[string]model.IndicatorResult, 12)

	rsi, ok := RSI(closes, RSIPeriod)
	results[model.IndRSI] = result(formatPercent(rsi), rsi, oscillatorStatus(rsi, 70, 30, ok), displayTime)

	sma20 := SMA(closes, 20)
	results[model.IndSMA20] = result(formatPrice(sma20), sma20, priceVsAverage(price, sma20), displayTime)

	sma50 := SMA(closes, 50)
	results[model.IndSMA50] = result(formatPrice(sma50), sma50, priceVsAverage(price, sma50), displayTime)

	ema12 := EMA(closes, MACDFast)
	results[model.IndEMA12] = result(formatPrice(ema12), ema12, priceVsAverage(price, ema12), displayTime)

	ema26 := EMA(closes, MACDSlow)
	results[model.IndEMA26] = result(formatPrice(ema26), ema26, priceVsAverage(price, ema26), displayTime)

	// With 26-34 closes the MACD line is real but the signal EMA is not yet
	// seeded, so the value shows while the status stays "insufficient data".
	macdLine, _, hist, _, signalOK := MACD(closes)
	results[model.IndMACD] = result(formatPrice(macdLine), macdLine, macdStatus(hist, signalOK), displayTime)

	stochK, ok := StochasticK(highs, lows, closes, StochPeriod)
	results[model.IndStochK] = result(formatPercent(stochK), stochK, oscillatorStatus(stochK, 80, 20, ok), displayTime)

	willR, ok := WilliamsR(highs, lows, closes, StochPeriod)
	results[model.IndWilliamsR] = result(formatPercent(willR), willR, oscillatorStatus(willR, -20, -80, ok), displayTime)

	upper, _, lower, ok := BollingerBands(closes, BollingerPeriod, 2.0)
	results[model.IndBollinger] = bollingerResult(price, upper, lower, ok, displayTime)

	atr, ok := ATR(highs, lows, closes, ATRPeriod)
	results[model.IndATR] = result(formatATR(atr), atr, atrStatus(atr, SMA(closes, ATRPeriod), ok), displayTime)

	cci, ok := CCI(highs, lows, closes, CCIPeriod)
	results[model.IndCCI] = result(formatPrice(cci), cci, oscillatorStatus(cci, 100, -100, ok), displayTime)

	adx, ok := ADX(highs, lows, closes, ADXPeriod)
	results[model.IndADX] = result(formatPercent(adx), adx, adxStatus(adx, ok), displayTime)

	return &model.IndicatorBundle{
		Symbol:     s.Symbol,
		Timeframe:  s.Timeframe,
		ComputedAt: now.UTC(),
		DataPoints: s.Len(),
		Source:     model.SourceLive,
		Indicators: results,
	}
}

func result(value string, raw float64, status, displayTime string) model.IndicatorResult {
	return model.IndicatorResult{Value: value, Raw: raw, Status: status, Time: displayTime}
}

func bollingerResult(price, upper, lower float64, ok bool, displayTime string) model.IndicatorResult {
	if !ok {
		return result(model.StatusInsufficient, 0, model.StatusInsufficient, displayTime)
	}
	pos := BollingerPosition(price, upper, lower)
	return result(pos, price, pos, displayTime)
}

// oscillatorStatus labels a bounded oscillator against its thresholds.
func oscillatorStatus(v, upper, lower float64, ok bool) string {
	if !ok {
		return model.StatusInsufficient
	}
	switch {
	case v > upper:
		return model.StatusOverbought
	case v < lower:
		return model.StatusOversold
	default:
		return model.StatusNeutral
	}
}

func priceVsAverage(price, avg float64) string {
	switch {
	case avg == 0:
		return model.StatusInsufficient
	case price >= avg:
		return model.StatusAboveAverage
	default:
		return model.StatusBelowAverage
	}
}

func macdStatus(histogram float64, ok bool) string {
	if !ok {
		return model.StatusInsufficient
	}
	switch {
	case histogram > 0:
		return model.StatusBullish
	case histogram < 0:
		return model.StatusBearish
	default:
		return model.StatusNeutral
	}
}

// atrStatus labels volatility by ATR as a percentage of the average price.
func atrStatus(atr, avgPrice float64, ok bool) string {
	if !ok {
		return model.StatusInsufficient
	}
	if avgPrice == 0 {
		return model.StatusNormal
	}
	pct := atr / avgPrice * 100.0
	switch {
	case pct > 3.0:
		return model.StatusHighVolatility
	case pct < 1.0:
		return model.StatusLowVolatility
	default:
		return model.StatusNormal
	}
}

func adxStatus(adx float64, ok bool) string {
	if !ok {
		return model.StatusInsufficient
	}
	switch {
	case adx > 50:
		return model.StatusStrongTrend
	case adx < 20:
		return model.StatusWeakTrend
	default:
		return model.StatusModerateTrend
	}
}

func formatPrice(v float64) string   { return fmt.Sprintf("%.2f", v) }
func formatPercent(v float64) string { return fmt.Sprintf("%.1f", v) }
func formatATR(v float64) string     { return fmt.Sprintf("%.4f", v) }
