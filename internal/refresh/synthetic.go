package refresh

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"cryptotrackerv1/internal/metrics"
	"cryptotrackerv1/internal/model"
)

// rng is guarded because synthetic bundles can be requested from several
// refresh goroutines at once.
var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func randRange(lo, hi float64) float64 {
	rngMu.Lock()
	defer rngMu.Unlock()
	return lo + rng.Float64()*(hi-lo)
}

// synthetic builds a placeholder bundle with uniformly random values in
// plausible per-indicator ranges. It is always tagged SourceSynthetic and
// DataPoints=0, so a consumer renders it as simulated, never as live data.
func (o *Orchestrator) synthetic(symbol string, tf model.Timeframe) *model.IndicatorBundle {
	o.count(func(m *metrics.Metrics) { m.SyntheticServed.Inc() })

	now := time.Now().UTC()
	displayTime := now.Format("2006-01-02 15:04")

	res := func(value string, raw float64) model.IndicatorResult {
		return model.IndicatorResult{
			Value:  value,
			Raw:    raw,
			Status: model.StatusNeutral,
			Time:   displayTime,
		}
	}

	rsi := randRange(35, 65)
	stoch := randRange(25, 75)
	price := randRange(90, 110)
	macd := randRange(-1, 1)
	atr := randRange(0.5, 2.5)
	cci := randRange(-80, 80)
	adx := randRange(20, 40)

	indicators := map[string]model.IndicatorResult{
		model.IndRSI:       res(fmt.Sprintf("%.1f", rsi), rsi),
		model.IndSMA20:     res(fmt.Sprintf("%.2f", price), price),
		model.IndSMA50:     res(fmt.Sprintf("%.2f", price), price),
		model.IndEMA12:     res(fmt.Sprintf("%.2f", price), price),
		model.IndEMA26:     res(fmt.Sprintf("%.2f", price), price),
		model.IndMACD:      res(fmt.Sprintf("%.2f", macd), macd),
		model.IndStochK:    res(fmt.Sprintf("%.1f", stoch), stoch),
		model.IndWilliamsR: res(fmt.Sprintf("%.1f", stoch-100), stoch-100),
		model.IndBollinger: res(model.StatusInsideBands, price),
		model.IndATR:       res(fmt.Sprintf("%.4f", atr), atr),
		model.IndCCI:       res(fmt.Sprintf("%.2f", cci), cci),
		model.IndADX:       res(fmt.Sprintf("%.1f", adx), adx),
	}

	return &model.IndicatorBundle{
		Symbol:     symbol,
		Timeframe:  tf,
		ComputedAt: now,
		DataPoints: 0,
		Source:     model.SourceSynthetic,
		Indicators: indicators,
	}
}
