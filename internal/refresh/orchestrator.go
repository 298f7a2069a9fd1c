// Package refresh decides when indicator bundles are recomputed, served
// from cache, or substituted with synthetic placeholders.
//
// Per (symbol, timeframe) key the orchestrator runs a small state machine:
// Idle -> Fetching -> Ready on a successful fetch+compute, or Degraded when
// the provider fails and a cached or synthetic bundle is served instead.
// Every bundle that leaves this package carries a Source tag, so a consumer
// can never mistake a fallback for live data.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cryptotrackerv1/internal/cache"
	"cryptotrackerv1/internal/indicator"
	"cryptotrackerv1/internal/metrics"
	"cryptotrackerv1/internal/model"
	"cryptotrackerv1/internal/provider"
	"cryptotrackerv1/internal/series"
)

// State is the per-key refresh state, exposed for observability.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateReady    State = "ready"
	StateDegraded State = "degraded"
)

// Options tunes the orchestrator's cache and fetch policy.
type Options struct {
	LiveTTL      time.Duration // bundle TTL for intraday timeframes
	SlowTTL      time.Duration // bundle TTL for 1h and slower timeframes
	FetchLimit   int           // candles requested per refresh
	FetchTimeout time.Duration // per-fetch deadline
}

// DefaultOptions mirror the polling cadence of the original dashboard:
// short TTLs for live intraday bundles, longer for slow aggregates.
func DefaultOptions() Options {
	return Options{
		LiveTTL:      90 * time.Second,
		SlowTTL:      5 * time.Minute,
		FetchLimit:   series.DefaultLimit,
		FetchTimeout: 20 * time.Second,
	}
}

// flight is one in-progress fetch+compute for a key. Concurrent refresh
// requests for the same key join it instead of spawning duplicates.
type flight struct {
	seq    uint64
	cancel context.CancelFunc
	done   chan struct{}
	bundle *model.IndicatorBundle // set before done is closed
}

// Orchestrator coordinates fetches, computation, caching, and fallback.
type Orchestrator struct {
	store *series.Store
	cache *cache.Cache
	prom  *metrics.Metrics
	log   *slog.Logger
	opts  Options

	mu      sync.Mutex
	seq     map[string]uint64 // last issued sequence per key
	flights map[string]*flight
	states  map[string]State
}

// New creates an Orchestrator. prom may be nil in tests.
func New(store *series.Store, c *cache.Cache, prom *metrics.Metrics, log *slog.Logger, opts Options) *Orchestrator {
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = series.DefaultLimit
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 20 * time.Second
	}
	return &Orchestrator{
		store:   store,
		cache:   c,
		prom:    prom,
		log:     log,
		opts:    opts,
		seq:     make(map[string]uint64),
		flights: make(map[string]*flight),
		states:  make(map[string]State),
	}
}

// Get serves a bundle synchronously: the cached bundle if one is live in
// the cache, otherwise a synthetic placeholder. Either way a background
// refresh is kicked (stale-while-revalidate), so the next call is fresher.
func (o *Orchestrator) Get(symbol string, tf model.Timeframe) *model.IndicatorBundle {
	key := bundleKey(symbol, tf)

	var cached model.IndicatorBundle
	if o.cache.Get(key, &cached) {
		o.count(func(m *metrics.Metrics) { m.CacheHits.Inc() })
		o.kickRefresh(symbol, tf)
		if cached.Source == model.SourceLive {
			cached.Source = model.SourceCached
		}
		return &cached
	}

	o.count(func(m *metrics.Metrics) { m.CacheMisses.Inc() })
	o.kickRefresh(symbol, tf)
	return o.synthetic(symbol, tf)
}

// Refresh fetches, computes, and caches a fresh bundle, blocking until the
// work completes. It never returns an error: failures degrade to the last
// cached bundle or a synthetic one, tagged accordingly. If a fetch for the
// same key is already in flight, the call joins it.
func (o *Orchestrator) Refresh(ctx context.Context, symbol string, tf model.Timeframe) *model.IndicatorBundle {
	key := bundleKey(symbol, tf)

	o.mu.Lock()
	if f, ok := o.flights[key]; ok {
		o.mu.Unlock()
		o.count(func(m *metrics.Metrics) { m.RefreshesJoined.Inc() })
		return o.await(ctx, f, symbol, tf)
	}
	f := o.startFlightLocked(key, symbol, tf)
	o.mu.Unlock()

	return o.await(ctx, f, symbol, tf)
}

// ForceRefresh supersedes any in-flight fetch for the key: the old flight
// is cancelled, its eventual completion is discarded by the sequence guard,
// and a new fetch starts immediately. Used when the kline stream reports a
// closed candle.
func (o *Orchestrator) ForceRefresh(ctx context.Context, symbol string, tf model.Timeframe) *model.IndicatorBundle {
	key := bundleKey(symbol, tf)

	o.mu.Lock()
	if f, ok := o.flights[key]; ok {
		f.cancel()
		delete(o.flights, key)
	}
	f := o.startFlightLocked(key, symbol, tf)
	o.mu.Unlock()

	return o.await(ctx, f, symbol, tf)
}

// State reports the refresh state for a key.
func (o *Orchestrator) State(symbol string, tf model.Timeframe) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.states[bundleKey(symbol, tf)]; ok {
		return s
	}
	return StateIdle
}

// RunStream consumes candle-close events and force-refreshes the affected
// keys ahead of their TTL. Blocks until ctx is cancelled.
func (o *Orchestrator) RunStream(ctx context.Context, events <-chan provider.CandleClose) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			o.count(func(m *metrics.Metrics) { m.StreamCloses.Inc() })
			o.ForceRefresh(ctx, ev.Symbol, ev.Timeframe)
		}
	}
}

// kickRefresh starts a background refresh unless one is already in flight.
func (o *Orchestrator) kickRefresh(symbol string, tf model.Timeframe) {
	key := bundleKey(symbol, tf)
	o.mu.Lock()
	if _, ok := o.flights[key]; ok {
		o.mu.Unlock()
		return
	}
	o.startFlightLocked(key, symbol, tf)
	o.mu.Unlock()
}

// startFlightLocked issues the next sequence number for the key and starts
// the fetch goroutine. Caller holds o.mu.
func (o *Orchestrator) startFlightLocked(key, symbol string, tf model.Timeframe) *flight {
	o.seq[key]++
	fctx, cancel := context.WithTimeout(context.Background(), o.opts.FetchTimeout)
	f := &flight{
		seq:    o.seq[key],
		cancel: cancel,
		done:   make(chan struct{}),
	}
	o.flights[key] = f
	o.states[key] = StateFetching

	go o.runFlight(fctx, key, symbol, tf, f)
	return f
}

// runFlight performs the fetch+compute for one flight and resolves it.
func (o *Orchestrator) runFlight(ctx context.Context, key, symbol string, tf model.Timeframe, f *flight) {
	defer f.cancel()

	s, err := o.store.Fetch(ctx, symbol, tf, o.opts.FetchLimit)

	if err != nil {
		o.log.Warn("series fetch failed", "symbol", symbol, "tf", tf, "err", err)
		o.resolve(key, symbol, tf, f, o.fallback(symbol, tf), StateDegraded)
		return
	}

	start := time.Now()
	bundle := indicator.Compute(s, time.Now())
	o.count(func(m *metrics.Metrics) {
		m.ComputeDur.Observe(time.Since(start).Seconds())
		m.BundlesComputed.Inc()
	})

	o.mu.Lock()
	stale := o.seq[key] != f.seq
	o.mu.Unlock()
	if stale {
		// A newer refresh superseded this fetch; drop the result silently.
		o.count(func(m *metrics.Metrics) { m.StaleDiscarded.Inc() })
		o.resolve(key, symbol, tf, f, o.fallback(symbol, tf), StateDegraded)
		return
	}

	ttl := o.ttlFor(tf)
	if err := o.cache.Set(key, bundle, ttl); err != nil {
		// Non-fatal: the bundle is still returned, just not persisted.
		o.count(func(m *metrics.Metrics) { m.CacheWriteErr.Inc() })
		o.log.Warn("bundle cache write failed", "key", key, "err", err)
	}
	// The raw series gets the slow TTL regardless of timeframe: it outlives
	// the bundle so a degraded refresh can recompute from real data.
	if err := o.cache.Set(seriesKey(symbol, tf), s, o.opts.SlowTTL); err != nil {
		o.count(func(m *metrics.Metrics) { m.CacheWriteErr.Inc() })
	}

	o.resolve(key, symbol, tf, f, bundle, StateReady)
}

// resolve publishes the flight outcome and clears it from the in-flight map
// (unless it was already superseded by a newer flight).
func (o *Orchestrator) resolve(key, symbol string, tf model.Timeframe, f *flight, bundle *model.IndicatorBundle, st State) {
	o.mu.Lock()
	if cur, ok := o.flights[key]; ok && cur == f {
		delete(o.flights, key)
		o.states[key] = st
	}
	o.mu.Unlock()

	f.bundle = bundle
	close(f.done)
}

// await blocks until the flight resolves or the caller's context ends.
// A caller that gives up early still gets a valid (cached or synthetic)
// bundle; the flight itself keeps running for other joiners.
func (o *Orchestrator) await(ctx context.Context, f *flight, symbol string, tf model.Timeframe) *model.IndicatorBundle {
	select {
	case <-f.done:
		return f.bundle
	case <-ctx.Done():
		return o.fallback(symbol, tf)
	}
}

// fallback returns the last cached bundle if one is still live, else a
// bundle recomputed from the longer-lived cached series, else a synthetic
// placeholder. Never nil.
func (o *Orchestrator) fallback(symbol string, tf model.Timeframe) *model.IndicatorBundle {
	var cached model.IndicatorBundle
	if o.cache.Get(bundleKey(symbol, tf), &cached) {
		if cached.Source == model.SourceLive {
			cached.Source = model.SourceCached
		}
		return &cached
	}

	var s model.Series
	if o.cache.Get(seriesKey(symbol, tf), &s) && len(s.Candles) >= series.MinCandles {
		b := indicator.Compute(&s, time.Now())
		b.Source = model.SourceCached
		return b
	}

	return o.synthetic(symbol, tf)
}

func (o *Orchestrator) ttlFor(tf model.Timeframe) time.Duration {
	if tf.Intraday() {
		return o.opts.LiveTTL
	}
	return o.opts.SlowTTL
}

func (o *Orchestrator) count(fn func(*metrics.Metrics)) {
	if o.prom != nil {
		fn(o.prom)
	}
}

func bundleKey(symbol string, tf model.Timeframe) string {
	return "bundle:" + symbol + ":" + string(tf)
}

func seriesKey(symbol string, tf model.Timeframe) string {
	return "series:" + symbol + ":" + string(tf)
}
