package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// redisOpTimeout bounds every Redis round trip so a slow backend degrades
// into a cache miss instead of stalling a refresh.
const redisOpTimeout = 2 * time.Second

// RedisStore keeps cache entries in Redis for deployments where several
// service restarts (or replicas reading the same watchlist) should share
// warmed bundles.
type RedisStore struct {
	client *goredis.Client
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and pings the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis cache store connected", "addr", cfg.Addr)
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) RawSet(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	// No Redis-side TTL: expiry is owned by the Cache envelope so all
	// backends behave identically under Sweep.
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) RawGet(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	v, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (r *RedisStore) RawRemove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := r.client.Del(ctx, key).Err(); err != nil {
		slog.Warn("redis remove failed", "key", key, "err", err)
	}
}

func (r *RedisStore) Keys(prefix string) []string {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.Warn("redis keys scan failed", "err", err)
	}
	return keys
}

func (r *RedisStore) Close() error { return r.client.Close() }
