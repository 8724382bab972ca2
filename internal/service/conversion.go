package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
	"currency-converter/internal/i18n"
	"currency-converter/internal/metrics"
	"currency-converter/pkg/logger"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrExternalAPI  = errors.New("external API error")
)

const DefaultRateTTL = time.Hour

type ConversionService struct {
	provider   ports.RateProvider
	cache      ports.RateCache
	translator ports.Translator
	events     ports.EventSink
	rateTTL    time.Duration
	metrics    *metrics.Metrics
	log        *logger.Logger

	flights singleflight.Group
}

func NewConversionService(
	provider ports.RateProvider,
	cache ports.RateCache,
	translator ports.Translator,
	events ports.EventSink,
	rateTTL time.Duration,
	m *metrics.Metrics,
	log *logger.Logger,
) *ConversionService {
	if rateTTL <= 0 {
		rateTTL = DefaultRateTTL
	}
	return &ConversionService{
		provider:   provider,
		cache:      cache,
		translator: translator,
		events:     events,
		rateTTL:    rateTTL,
		metrics:    m,
		log:        log,
	}
}

// Convert validates the request, resolves the rate and builds the localized result.
func (s *ConversionService) Convert(ctx context.Context, request model.ConversionRequest) (*model.ConversionResult, error) {
	if err := validateRequest(request); err != nil {
		return nil, err
	}

	quote, err := s.GetRate(ctx, request.Pair())
	if err != nil {
		return nil, err
	}

	converted := roundConverted(request.Amount, quote.Rate)

	result := &model.ConversionResult{
		Result:    s.translator.Translate(i18n.KeyConversionSuccess, request.Lang),
		From:      request.From,
		To:        request.To,
		Amount:    request.Amount,
		Converted: converted,
		Rate:      quote.Rate,
	}

	s.events.Publish(ctx, model.Event{
		Name:    model.EventConversion,
		Details: fmt.Sprintf("%v %s -> %v %s", request.Amount, request.From, converted, request.To),
		Properties: map[string]any{
			"amount":    request.Amount,
			"from":      request.From.String(),
			"converted": converted,
			"to":        request.To.String(),
			"rate":      quote.Rate,
			"cached":    quote.Cached,
		},
		Time: time.Now(),
	})

	return result, nil
}

// GetRate returns the cached rate for the pair or fetches and caches it.
// Concurrent misses for one pair share a single provider call.
func (s *ConversionService) GetRate(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error) {
	if pair.From.IsEmpty() || pair.To.IsEmpty() {
		return nil, ErrInvalidInput
	}

	key := pair.Key()
	if rate, found := s.lookup(ctx, key); found {
		return &model.RateQuote{From: pair.From, To: pair.To, Rate: rate, Cached: true}, nil
	}

	v, err, _ := s.flights.Do(key, func() (any, error) {
		// a flight that just finished may have filled the cache
		if rate, found := s.lookup(ctx, key); found {
			return rate, nil
		}
		return s.fetchAndStore(context.WithoutCancel(ctx), pair)
	})
	if err != nil {
		return nil, err
	}

	return &model.RateQuote{From: pair.From, To: pair.To, Rate: v.(float64)}, nil
}

func (s *ConversionService) lookup(ctx context.Context, key string) (float64, bool) {
	rate, found, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.log.Warn("Rate cache lookup failed, treating as miss", "key", key, "error", err)
		s.metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		return 0, false
	case found:
		s.metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return rate, true
	default:
		s.metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return 0, false
	}
}

func (s *ConversionService) fetchAndStore(ctx context.Context, pair model.CurrencyPair) (float64, error) {
	s.log.Info("Fetching exchange rate from provider", "pair", pair.String())

	rate, err := s.provider.FetchRate(ctx, pair)
	if err != nil {
		s.log.Error("Failed to fetch exchange rate", "error", err, "pair", pair.String())
		s.events.Publish(ctx, model.Event{
			Name:    model.EventAPIError,
			Details: err.Error(),
			Properties: map[string]any{
				"from": pair.From.String(),
				"to":   pair.To.String(),
			},
			Time: time.Now(),
		})

		if errors.Is(err, ports.ErrInvalidCurrency) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return 0, fmt.Errorf("%w: %v", ErrExternalAPI, err)
	}

	if err := s.cache.Set(ctx, pair.Key(), rate, s.rateTTL); err != nil {
		s.log.Error("Failed to cache exchange rate", "error", err, "pair", pair.String())
	}

	return rate, nil
}

// validateRequest rejects a zero amount as absent.
func validateRequest(request model.ConversionRequest) error {
	if request.From.IsEmpty() || request.To.IsEmpty() {
		return fmt.Errorf("%w: from and to are required", ErrInvalidInput)
	}
	if request.Amount == 0 || math.IsNaN(request.Amount) || math.IsInf(request.Amount, 0) {
		return fmt.Errorf("%w: amount must be a non-zero number", ErrInvalidInput)
	}
	return nil
}

// roundConverted returns amount*rate rounded half away from zero to 2 places.
func roundConverted(amount, rate float64) float64 {
	return decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(rate)).
		Round(2).
		InexactFloat64()
}
