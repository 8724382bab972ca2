package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"currency-converter/internal/domain/ports"
	"currency-converter/pkg/logger"
)

var _ ports.RateCache = (*RedisCache)(nil)

// RedisCache keeps rates as strings so they survive any client decoding settings.
type RedisCache struct {
	client *redis.Client
	prefix string
	log    *logger.Logger
}

func NewRedisCache(client *redis.Client, prefix string, log *logger.Logger) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) (float64, bool, error) {
	s, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.log.Debug("Cache miss", "key", key)
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("cache get %s: %w", key, err)
	}

	rate, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("cache parse %s: %w", key, err)
	}

	c.log.Debug("Cache hit", "key", key)
	return rate, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, rate float64, ttl time.Duration) error {
	value := strconv.FormatFloat(rate, 'g', -1, 64)
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	c.log.Debug("Cache set", "key", key, "ttl", ttl)
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
