// Package metrics registers and serves Prometheus metrics for the tracker.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indicator engine.
type Metrics struct {
	FetchesTotal prometheus.Counter
	FetchErrors  prometheus.Counter

	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	CacheWriteErr prometheus.Counter
	SweepPurged   prometheus.Counter

	ComputeDur      prometheus.Histogram
	BundlesComputed prometheus.Counter
	SyntheticServed prometheus.Counter
	StaleDiscarded  prometheus.Counter
	RefreshesJoined prometheus.Counter
	StreamCloses    prometheus.Counter

	BreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	BreakerTrips prometheus.Counter
}

// New registers and returns all metrics on the default registry.
func New() *Metrics {
	m := &Metrics{
		FetchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerd_fetches_total",
			Help: "Successful kline fetches from the provider",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerd_fetch_errors_total",
			Help: "Failed kline fetches (network, status, malformed payload)",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerd_cache_hits_total",
			Help: "Bundle cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerd_cache_misses_total",
			Help: "Bundle cache misses (absent or expired)",
		}),
		CacheWriteErr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerd_cache_write_errors_total",
			Help: "Cache writes that failed and were skipped",
		}),
		SweepPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerd_sweep_purged_total",
			Help: "Expired cache entries removed by periodic sweeps",
		}),
		ComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trackerd_compute_duration_seconds",
			Help:    "Indicator bundle computation latency",
			Buckets: prometheus.DefBuckets,
		}),
		BundlesComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerd_bundles_computed_total",
			Help: "Live indicator bundles computed",
		}),
		SyntheticServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerd_synthetic_bundles_total",
			Help: "Synthetic fallback bundles served",
		}),
		StaleDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerd_stale_results_discarded_total",
			Help: "Fetch completions discarded because a newer refresh superseded them",
		}),
		RefreshesJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerd_refreshes_joined_total",
			Help: "Refresh calls that joined an in-flight fetch for the same key",
		}),
		StreamCloses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerd_stream_candle_closes_total",
			Help: "Candle-close events received from the kline stream",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trackerd_provider_breaker_state",
			Help: "Provider circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		BreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerd_provider_breaker_trips_total",
			Help: "Times the provider circuit breaker opened",
		}),
	}

	prometheus.MustRegister(
		m.FetchesTotal, m.FetchErrors,
		m.CacheHits, m.CacheMisses, m.CacheWriteErr, m.SweepPurged,
		m.ComputeDur, m.BundlesComputed, m.SyntheticServed,
		m.StaleDiscarded, m.RefreshesJoined, m.StreamCloses,
		m.BreakerState, m.BreakerTrips,
	)
	return m
}

// Serve runs the /metrics endpoint until ctx is cancelled.
func Serve(ctx context.Context, addr string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server failed", "err", err)
	}
}
