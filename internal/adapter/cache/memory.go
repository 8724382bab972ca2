package cache

import (
	"context"
	"sync"
	"time"

	"currency-converter/internal/domain/ports"
	"currency-converter/pkg/logger"
)

var _ ports.RateCache = (*MemoryCache)(nil)

type memoryEntry struct {
	rate      float64
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used when redis is unreachable at startup.
type MemoryCache struct {
	cacheMap map[string]memoryEntry
	mutex    sync.RWMutex
	now      func() time.Time
	log      *logger.Logger
}

func NewMemoryCache(log *logger.Logger) *MemoryCache {
	return &MemoryCache{
		cacheMap: make(map[string]memoryEntry),
		now:      time.Now,
		log:      log,
	}
}

// WithClock replaces the time source. Tests only.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) (float64, bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, found := c.cacheMap[key]
	if !found {
		c.log.Debug("Cache miss", "key", key)
		return 0, false, nil
	}

	if entry.expired(c.now()) {
		c.log.Debug("Cache entry expired", "key", key)
		return 0, false, nil
	}

	c.log.Debug("Cache hit", "key", key)
	return entry.rate, true, nil
}

// Set stores rate under key. A non-positive ttl keeps the entry for the process lifetime.
func (c *MemoryCache) Set(ctx context.Context, key string, rate float64, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry := memoryEntry{rate: rate}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}

	c.cacheMap[key] = entry
	c.log.Debug("Cache set", "key", key, "ttl", ttl)

	return nil
}

func (c *MemoryCache) ClearExpired(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0

	for key, entry := range c.cacheMap {
		if entry.expired(now) {
			delete(c.cacheMap, key)
			removed++
		}
	}

	c.log.Info("Cleared expired cache entries", "count", removed)
	return nil
}

func (c *MemoryCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cacheMap)
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
