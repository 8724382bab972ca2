package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"currency-converter/internal/config"
	"currency-converter/internal/domain/ports"
	"currency-converter/pkg/logger"
)

type Backend string

const (
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

const defaultPingTimeout = 2 * time.Second

// NewRateCache pings redis once. When it answers the redis store is returned,
// otherwise the in-memory store. The choice holds for the process lifetime.
func NewRateCache(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (ports.RateCache, Backend) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Warn("Invalid redis URL, using in-memory cache", "error", err)
		return NewMemoryCache(log), BackendMemory
	}

	client := redis.NewClient(opts)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		log.Warn("Redis unreachable, using in-memory cache", "addr", opts.Addr, "error", err)
		return NewMemoryCache(log), BackendMemory
	}

	log.Info("Using redis cache", "addr", opts.Addr, "db", opts.DB)
	return NewRedisCache(client, cfg.KeyPrefix, log), BackendRedis
}
