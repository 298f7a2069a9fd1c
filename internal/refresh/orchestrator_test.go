package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"cryptotrackerv1/internal/cache"
	"cryptotrackerv1/internal/model"
	"cryptotrackerv1/internal/series"
)

// fakeProvider is a controllable KlineProvider. gate, when set, blocks calls
// until it is closed (only call number gateCall when that is non-zero, and
// that call ignores cancellation so it can complete late); blockCalls makes
// the first N calls hang until their context is cancelled. perCall overrides
// the returned candles for specific call numbers.
type fakeProvider struct {
	mu         sync.Mutex
	calls      int
	candles    []model.Candle
	err        error
	gate       chan struct{}
	gateCall   int
	blockCalls int
	perCall    map[int][]model.Candle
}

func (p *fakeProvider) GetKlines(ctx context.Context, pair string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	p.mu.Lock()
	p.calls++
	idx := p.calls
	candles, err, gate := p.candles, p.err, p.gate
	if alt, ok := p.perCall[idx]; ok {
		candles = alt
	}
	gated := gate != nil && (p.gateCall == 0 || idx == p.gateCall)
	ctxImmune := p.gateCall != 0
	blocked := idx <= p.blockCalls
	p.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if gated {
		if ctxImmune {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return append([]model.Candle(nil), candles...), nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeProvider) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func makeCandles(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		c := 100.0 + float64(i)
		out[i] = model.Candle{
			TS:    int64(i+1) * 60_000,
			Open:  c, High: c + 1, Low: c - 1, Close: c,
			Volume: 10,
		}
	}
	return out
}

func newTestOrchestrator(p *fakeProvider) (*Orchestrator, *cache.Cache) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.New(cache.NewMemoryStore(0))
	st := series.NewStore(p, log)
	o := New(st, c, nil, log, Options{
		LiveTTL:      time.Minute,
		SlowTTL:      time.Hour,
		FetchLimit:   50,
		FetchTimeout: 5 * time.Second,
	})
	return o, c
}

func waitForState(t *testing.T, o *Orchestrator, symbol string, tf model.Timeframe, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o.State(symbol, tf) == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state never reached %q (now %q)", want, o.State(symbol, tf))
}

// ────────────────────────── refresh ──────────────────────────

func TestRefresh_SuccessProducesLiveBundle(t *testing.T) {
	p := &fakeProvider{candles: makeCandles(40)}
	o, _ := newTestOrchestrator(p)

	b := o.Refresh(context.Background(), "BTC", model.TF1h)
	if b.Source != model.SourceLive {
		t.Fatalf("Source: got %q, want live", b.Source)
	}
	if b.DataPoints != 40 {
		t.Errorf("DataPoints: got %d, want 40", b.DataPoints)
	}
	if got := o.State("BTC", model.TF1h); got != StateReady {
		t.Errorf("state: got %q, want ready", got)
	}
}

func TestRefresh_ProviderFailureDegradesToSynthetic(t *testing.T) {
	p := &fakeProvider{err: errors.New("exchange down")}
	o, _ := newTestOrchestrator(p)

	b := o.Refresh(context.Background(), "ETH", model.TF1d)
	if b == nil {
		t.Fatal("Refresh must never return nil")
	}
	if b.Source != model.SourceSynthetic {
		t.Errorf("Source: got %q, want synthetic", b.Source)
	}
	if b.DataPoints != 0 {
		t.Errorf("synthetic DataPoints: got %d, want 0", b.DataPoints)
	}
	if got := o.State("ETH", model.TF1d); got != StateDegraded {
		t.Errorf("state: got %q, want degraded", got)
	}
}

func TestRefresh_ProviderFailureFallsBackToCached(t *testing.T) {
	p := &fakeProvider{candles: makeCandles(40)}
	o, _ := newTestOrchestrator(p)

	if b := o.Refresh(context.Background(), "BTC", model.TF1h); b.Source != model.SourceLive {
		t.Fatalf("seed refresh: got %q, want live", b.Source)
	}

	p.setErr(errors.New("exchange down"))
	b := o.Refresh(context.Background(), "BTC", model.TF1h)
	if b.Source != model.SourceCached {
		t.Errorf("Source: got %q, want cached", b.Source)
	}
	if b.DataPoints != 40 {
		t.Errorf("cached bundle DataPoints: got %d, want 40", b.DataPoints)
	}
}

func TestRefresh_ThinSeriesDegrades(t *testing.T) {
	// A fetch that succeeds with too few candles to seed any indicator is a
	// failed refresh: nothing gets cached and the bundle is not live.
	p := &fakeProvider{candles: makeCandles(5)}
	o, c := newTestOrchestrator(p)

	b := o.Refresh(context.Background(), "BTC", model.TF1h)
	if b.Source == model.SourceLive {
		t.Errorf("thin series served as live with %d points", b.DataPoints)
	}
	if got := o.State("BTC", model.TF1h); got != StateDegraded {
		t.Errorf("state: got %q, want degraded", got)
	}
	var cached model.IndicatorBundle
	if c.Get(bundleKey("BTC", model.TF1h), &cached) {
		t.Error("thin series must not populate the bundle cache")
	}
}

func TestFallback_RecomputesFromCachedSeries(t *testing.T) {
	p := &fakeProvider{candles: makeCandles(40)}
	o, c := newTestOrchestrator(p)

	o.Refresh(context.Background(), "BTC", model.TF1h)

	// The bundle expires ahead of the longer-lived raw series.
	c.Remove(bundleKey("BTC", model.TF1h))
	p.setErr(errors.New("exchange down"))

	b := o.Refresh(context.Background(), "BTC", model.TF1h)
	if b.Source != model.SourceCached {
		t.Fatalf("Source: got %q, want cached (recomputed from the stored series)", b.Source)
	}
	if b.DataPoints != 40 {
		t.Errorf("DataPoints: got %d, want 40", b.DataPoints)
	}
}

// ────────────────────────── get (stale-while-revalidate) ──────────────────────────

func TestGet_ColdCacheServesSyntheticImmediately(t *testing.T) {
	p := &fakeProvider{err: errors.New("exchange down")}
	o, _ := newTestOrchestrator(p)

	b := o.Get("SOL", model.TF1h)
	if b.Source != model.SourceSynthetic {
		t.Errorf("Source: got %q, want synthetic", b.Source)
	}
	if len(b.Indicators) != 12 {
		t.Errorf("synthetic bundle size: got %d indicators, want 12", len(b.Indicators))
	}
}

func TestGet_WarmCacheServesCachedAndRevalidates(t *testing.T) {
	p := &fakeProvider{candles: makeCandles(40)}
	o, _ := newTestOrchestrator(p)

	o.Refresh(context.Background(), "BTC", model.TF1h)
	before := p.callCount()

	b := o.Get("BTC", model.TF1h)
	if b.Source != model.SourceCached {
		t.Errorf("Source: got %q, want cached", b.Source)
	}

	// Get must have kicked a background refresh.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && p.callCount() == before {
		time.Sleep(time.Millisecond)
	}
	if p.callCount() == before {
		t.Error("Get did not start a background refresh")
	}
}

// ────────────────────────── single flight and supersede ──────────────────────────

func TestRefresh_ConcurrentCallsJoinOneFlight(t *testing.T) {
	gate := make(chan struct{})
	p := &fakeProvider{candles: makeCandles(40), gate: gate}
	o, _ := newTestOrchestrator(p)

	results := make(chan *model.IndicatorBundle, 2)
	go func() { results <- o.Refresh(context.Background(), "BTC", model.TF1h) }()
	waitForState(t, o, "BTC", model.TF1h, StateFetching)
	go func() { results <- o.Refresh(context.Background(), "BTC", model.TF1h) }()

	time.Sleep(10 * time.Millisecond) // let the second call join
	close(gate)

	b1, b2 := <-results, <-results
	if b1 != b2 {
		t.Error("joined refreshes should resolve to the same bundle")
	}
	if b1.Source != model.SourceLive {
		t.Errorf("Source: got %q, want live", b1.Source)
	}
	if got := p.callCount(); got != 1 {
		t.Errorf("provider calls: got %d, want 1", got)
	}
}

func TestForceRefresh_SupersedesInFlightFetch(t *testing.T) {
	// The first fetch hangs until its context is cancelled; ForceRefresh
	// must cancel it and win with a fresh fetch.
	p := &fakeProvider{candles: makeCandles(40), blockCalls: 1}
	o, _ := newTestOrchestrator(p)

	first := make(chan *model.IndicatorBundle, 1)
	go func() { first <- o.Refresh(context.Background(), "BTC", model.TF1h) }()
	waitForState(t, o, "BTC", model.TF1h, StateFetching)

	b := o.ForceRefresh(context.Background(), "BTC", model.TF1h)
	if b.Source != model.SourceLive {
		t.Errorf("forced refresh Source: got %q, want live", b.Source)
	}
	if got := p.callCount(); got != 2 {
		t.Errorf("provider calls: got %d, want 2", got)
	}

	// The superseded caller still gets a usable bundle, never nil.
	select {
	case ob := <-first:
		if ob == nil {
			t.Error("superseded refresh returned nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded refresh never resolved")
	}
}

func TestRefresh_StaleCompletionIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	p := &fakeProvider{
		candles:  makeCandles(40),
		gate:     gate,
		gateCall: 1,
		perCall:  map[int][]model.Candle{1: makeCandles(60)},
	}
	o, c := newTestOrchestrator(p)

	first := make(chan *model.IndicatorBundle, 1)
	go func() { first <- o.Refresh(context.Background(), "BTC", model.TF1h) }()
	waitForState(t, o, "BTC", model.TF1h, StateFetching)

	// Supersede while the first fetch is still in flight.
	b := o.ForceRefresh(context.Background(), "BTC", model.TF1h)
	if b.Source != model.SourceLive || b.DataPoints != 40 {
		t.Fatalf("forced refresh: got %q/%d, want live/40", b.Source, b.DataPoints)
	}

	// The first fetch now completes successfully, but its sequence is
	// stale: its 60-candle result must be dropped, not served or cached.
	close(gate)
	ob := <-first
	if ob.Source == model.SourceLive || ob.DataPoints == 60 {
		t.Errorf("superseded result leaked through: got %q/%d", ob.Source, ob.DataPoints)
	}

	var cached model.IndicatorBundle
	if !c.Get(bundleKey("BTC", model.TF1h), &cached) {
		t.Fatal("expected the winning bundle in cache")
	}
	if cached.DataPoints != 40 {
		t.Errorf("cached bundle: got %d points, want 40 from the newer flight", cached.DataPoints)
	}
}

func TestAwait_CallerContextCancelledGetsFallback(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	p := &fakeProvider{candles: makeCandles(40), gate: gate}
	o, _ := newTestOrchestrator(p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := o.Refresh(ctx, "BTC", model.TF1h)
	if b == nil {
		t.Fatal("Refresh must never return nil")
	}
	if b.Source != model.SourceSynthetic {
		t.Errorf("Source: got %q, want synthetic (nothing cached yet)", b.Source)
	}
}
