package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cryptotrackerv1/config"
	"cryptotrackerv1/internal/api"
	"cryptotrackerv1/internal/cache"
	"cryptotrackerv1/internal/logger"
	"cryptotrackerv1/internal/metrics"
	"cryptotrackerv1/internal/model"
	"cryptotrackerv1/internal/provider"
	"cryptotrackerv1/internal/refresh"
	"cryptotrackerv1/internal/scheduler"
	"cryptotrackerv1/internal/series"
)

func main() {
	cfgPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.Init("trackerd", logger.ParseLevel(cfg.LogLevel))
	prom := metrics.New()

	store, err := openStore(cfg)
	if err != nil {
		log.Error("cache store init failed", "backend", cfg.Cache.Backend, "err", err)
		os.Exit(1)
	}
	bundleCache := cache.New(store)
	defer bundleCache.Close()

	binance := provider.NewBinance(cfg.Provider.BaseURL, prom)
	seriesStore := series.NewStore(binance, log)

	orch := refresh.New(seriesStore, bundleCache, prom, log, refresh.Options{
		LiveTTL:    cfg.LiveTTL(),
		SlowTTL:    cfg.SlowTTL(),
		FetchLimit: cfg.Refresh.FetchLimit,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	timeframes := cfg.Timeframes()

	// Scheduler: periodic refresh + cache sweep.
	sched := scheduler.New(ctx, orch, bundleCache, prom, log, cfg.Refresh.Watchlist, timeframes)
	if err := sched.Register(cfg.Schedule.RefreshCron, cfg.Schedule.SweepCron); err != nil {
		log.Error("scheduler setup failed", "err", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()
	go sched.RefreshNow()

	// Optional kline stream: refresh bundles the moment a candle closes.
	if cfg.Provider.UseStream {
		stream := provider.NewStream(cfg.Provider.StreamURL, streamSubs(cfg.Refresh.Watchlist, timeframes), log)
		go stream.Run(ctx)
		go orch.RunStream(ctx, stream.Events())
	}

	go metrics.Serve(ctx, cfg.MetricsAddr, log)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.NewRouter(orch, log)}
	go func() {
		<-ctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shutCancel()
		srv.Shutdown(shutCtx)
	}()

	log.Info("trackerd started",
		"http", cfg.HTTPAddr,
		"metrics", cfg.MetricsAddr,
		"cache_backend", cfg.Cache.Backend,
		"watchlist", cfg.Refresh.Watchlist,
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("http server failed", "err", err)
		os.Exit(1)
	}
}

// openStore selects the raw cache backend from config.
func openStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Cache.SQLitePath), 0o755); err != nil {
			return nil, err
		}
		return cache.NewSQLiteStore(cfg.Cache.SQLitePath)
	case "redis":
		return cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPass,
			DB:       cfg.Cache.RedisDB,
		})
	default:
		return cache.NewMemoryStore(cfg.Cache.MaxEntries), nil
	}
}

func streamSubs(watchlist []string, timeframes []model.Timeframe) []provider.Subscription {
	subs := make([]provider.Subscription, 0, len(watchlist)*len(timeframes))
	for _, symbol := range watchlist {
		for _, tf := range timeframes {
			subs = append(subs, provider.Subscription{
				Symbol:    symbol,
				Pair:      model.Pair(symbol),
				Timeframe: tf,
			})
		}
	}
	return subs
}
