// Package scheduler drives periodic watchlist refreshes and cache sweeps.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"cryptotrackerv1/internal/cache"
	"cryptotrackerv1/internal/metrics"
	"cryptotrackerv1/internal/model"
	"cryptotrackerv1/internal/refresh"
)

// Scheduler owns the cron jobs that keep the watchlist warm: a refresh per
// configured timeframe and a cache sweep, replacing the fixed polling
// intervals of an interactive client.
type Scheduler struct {
	cron  *cron.Cron
	orch  *refresh.Orchestrator
	cache *cache.Cache
	prom  *metrics.Metrics
	log   *slog.Logger
	ctx   context.Context

	watchlist  []string
	timeframes []model.Timeframe
}

// New creates a Scheduler. prom may be nil.
func New(ctx context.Context, orch *refresh.Orchestrator, c *cache.Cache, prom *metrics.Metrics, log *slog.Logger, watchlist []string, timeframes []model.Timeframe) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		orch:       orch,
		cache:      c,
		prom:       prom,
		log:        log,
		ctx:        ctx,
		watchlist:  watchlist,
		timeframes: timeframes,
	}
}

// Register installs the refresh and sweep jobs.
func (s *Scheduler) Register(refreshCron, sweepCron string) error {
	if _, err := s.cron.AddFunc(refreshCron, s.refreshAll); err != nil {
		return fmt.Errorf("register refresh job: %w", err)
	}
	if _, err := s.cron.AddFunc(sweepCron, s.sweep); err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}
	return nil
}

// Start begins running the registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "symbols", len(s.watchlist), "timeframes", len(s.timeframes))
}

// Stop stops the scheduler; running jobs finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("scheduler stopped")
}

// RefreshNow warms the whole watchlist immediately (used at startup).
func (s *Scheduler) RefreshNow() {
	s.refreshAll()
}

func (s *Scheduler) refreshAll() {
	for _, symbol := range s.watchlist {
		for _, tf := range s.timeframes {
			if s.ctx.Err() != nil {
				return
			}
			bundle := s.orch.Refresh(s.ctx, symbol, tf)
			if !bundle.Live() {
				s.log.Warn("scheduled refresh degraded", "symbol", symbol, "tf", tf, "source", bundle.Source)
			}
		}
	}
}

func (s *Scheduler) sweep() {
	purged := s.cache.Sweep()
	if s.prom != nil {
		s.prom.SweepPurged.Add(float64(purged))
	}
	if purged > 0 {
		s.log.Info("cache sweep", "purged", purged)
	}
}
