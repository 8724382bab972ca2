package ports

import (
	"context"
	"errors"

	"currency-converter/internal/domain/model"
)

var (
	// ErrUpstreamUnavailable covers transport failures, non-200 answers and malformed payloads.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrInvalidCurrency is returned when the provider answers but rejects the pair.
	ErrInvalidCurrency = errors.New("invalid currency")
)

type RateProvider interface {
	FetchRate(ctx context.Context, pair model.CurrencyPair) (float64, error)
}
