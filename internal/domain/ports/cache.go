package ports

import (
	"context"
	"time"
)

// RateCache stores exchange rates by pair key with a time-to-live.
type RateCache interface {
	Get(ctx context.Context, key string) (rate float64, found bool, err error)
	Set(ctx context.Context, key string, rate float64, ttl time.Duration) error
}
