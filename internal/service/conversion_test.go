package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"currency-converter/internal/adapter/cache"
	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
	"currency-converter/internal/i18n"
	"currency-converter/internal/metrics"
	"currency-converter/pkg/logger"
)

type MockRateCache struct {
	GetFunc func(ctx context.Context, key string) (float64, bool, error)
	SetFunc func(ctx context.Context, key string, rate float64, ttl time.Duration) error
}

func (m *MockRateCache) Get(ctx context.Context, key string) (float64, bool, error) {
	return m.GetFunc(ctx, key)
}

func (m *MockRateCache) Set(ctx context.Context, key string, rate float64, ttl time.Duration) error {
	return m.SetFunc(ctx, key, rate, ttl)
}

type MockRateProvider struct {
	FetchRateFunc func(ctx context.Context, pair model.CurrencyPair) (float64, error)
}

func (m *MockRateProvider) FetchRate(ctx context.Context, pair model.CurrencyPair) (float64, error) {
	return m.FetchRateFunc(ctx, pair)
}

type MockEventSink struct {
	mu     sync.Mutex
	Events []model.Event
}

func (m *MockEventSink) Publish(ctx context.Context, event model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

func (m *MockEventSink) Close() error { return nil }

func (m *MockEventSink) Named(name string) []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, e := range m.Events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// countingProvider returns rate and counts calls.
func countingProvider(rate float64, calls *atomic.Int32) *MockRateProvider {
	return &MockRateProvider{
		FetchRateFunc: func(ctx context.Context, pair model.CurrencyPair) (float64, error) {
			calls.Add(1)
			return rate, nil
		},
	}
}

func newTestService(provider ports.RateProvider, rateCache ports.RateCache, sink *MockEventSink) *ConversionService {
	return NewConversionService(
		provider,
		rateCache,
		i18n.NewTranslator("en"),
		sink,
		time.Hour,
		metrics.NewNopMetrics(),
		logger.Discard(),
	)
}

func TestConversionService_GetRate(t *testing.T) {

	usdEur := model.CurrencyPair{From: "USD", To: "EUR"}

	testCases := []struct {
		name           string
		pair           model.CurrencyPair
		mockCache      MockRateCache
		mockProvider   MockRateProvider
		expectedRate   float64
		expectedCached bool
		expectedError  error
	}{
		{
			name: "Success - Cache Hit",
			pair: usdEur,
			mockCache: MockRateCache{
				GetFunc: func(ctx context.Context, key string) (float64, bool, error) {
					return 0.9123, true, nil
				},
			},
			mockProvider:   MockRateProvider{},
			expectedRate:   0.9123,
			expectedCached: true,
		},
		{
			name: "Success - Cache Miss, Provider Hit",
			pair: usdEur,
			mockCache: MockRateCache{
				GetFunc: func(ctx context.Context, key string) (float64, bool, error) {
					return 0, false, nil
				},
				SetFunc: func(ctx context.Context, key string, rate float64, ttl time.Duration) error {
					if key != "USD_EUR" {
						return fmt.Errorf("unexpected key %s", key)
					}
					if ttl != time.Hour {
						return fmt.Errorf("unexpected ttl %s", ttl)
					}
					return nil
				},
			},
			mockProvider: MockRateProvider{
				FetchRateFunc: func(ctx context.Context, pair model.CurrencyPair) (float64, error) {
					return 0.95, nil
				},
			},
			expectedRate: 0.95,
		},
		{
			name: "Success - Cache Error Treated As Miss",
			pair: usdEur,
			mockCache: MockRateCache{
				GetFunc: func(ctx context.Context, key string) (float64, bool, error) {
					return 0, false, errors.New("connection reset")
				},
				SetFunc: func(ctx context.Context, key string, rate float64, ttl time.Duration) error {
					return errors.New("connection reset")
				},
			},
			mockProvider: MockRateProvider{
				FetchRateFunc: func(ctx context.Context, pair model.CurrencyPair) (float64, error) {
					return 1.1, nil
				},
			},
			expectedRate: 1.1,
		},
		{
			name:          "Error - Missing Currency",
			pair:          model.CurrencyPair{From: "USD"},
			mockCache:     MockRateCache{},
			mockProvider:  MockRateProvider{},
			expectedError: ErrInvalidInput,
		},
		{
			name: "Error - Provider Rejects Currency",
			pair: model.CurrencyPair{From: "USD", To: "XYZ"},
			mockCache: MockRateCache{
				GetFunc: func(ctx context.Context, key string) (float64, bool, error) {
					return 0, false, nil
				},
			},
			mockProvider: MockRateProvider{
				FetchRateFunc: func(ctx context.Context, pair model.CurrencyPair) (float64, error) {
					return 0, fmt.Errorf("%w: unsupported-code", ports.ErrInvalidCurrency)
				},
			},
			expectedError: ErrInvalidInput,
		},
		{
			name: "Error - Provider Unavailable",
			pair: usdEur,
			mockCache: MockRateCache{
				GetFunc: func(ctx context.Context, key string) (float64, bool, error) {
					return 0, false, nil
				},
			},
			mockProvider: MockRateProvider{
				FetchRateFunc: func(ctx context.Context, pair model.CurrencyPair) (float64, error) {
					return 0, fmt.Errorf("%w: API returned non-OK status: 500", ports.ErrUpstreamUnavailable)
				},
			},
			expectedError: ErrExternalAPI,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {

			svc := newTestService(&tc.mockProvider, &tc.mockCache, &MockEventSink{})

			quote, err := svc.GetRate(context.Background(), tc.pair)

			if (tc.expectedError != nil && err == nil) || (tc.expectedError == nil && err != nil) {
				t.Fatalf("Expected error: %v, got: %v", tc.expectedError, err)
			}

			if tc.expectedError != nil {
				if !errors.Is(err, tc.expectedError) {
					t.Errorf("Expected error to contain: %v, got: %v", tc.expectedError, err)
				}
				if quote != nil {
					t.Errorf("Expected nil quote, got: %v", quote)
				}
				return
			}

			if quote.Rate != tc.expectedRate {
				t.Errorf("Expected rate: %f, got: %f", tc.expectedRate, quote.Rate)
			}
			if quote.Cached != tc.expectedCached {
				t.Errorf("Expected cached: %v, got: %v", tc.expectedCached, quote.Cached)
			}
			if quote.From != tc.pair.From || quote.To != tc.pair.To {
				t.Errorf("Expected pair %s, got: %s-%s", tc.pair, quote.From, quote.To)
			}
		})
	}
}

func TestConversionService_Convert(t *testing.T) {

	hit := func(rate float64) MockRateCache {
		return MockRateCache{
			GetFunc: func(ctx context.Context, key string) (float64, bool, error) {
				return rate, true, nil
			},
		}
	}

	testCases := []struct {
		name           string
		request        model.ConversionRequest
		mockCache      MockRateCache
		expectedResult *model.ConversionResult
		expectedError  error
	}{
		{
			name:      "Success - English",
			request:   model.ConversionRequest{From: "USD", To: "EUR", Amount: 100, Lang: "en"},
			mockCache: hit(0.9123),
			expectedResult: &model.ConversionResult{
				Result: "Conversion successful", From: "USD", To: "EUR",
				Amount: 100, Converted: 91.23, Rate: 0.9123,
			},
		},
		{
			name:      "Success - Spanish",
			request:   model.ConversionRequest{From: "USD", To: "EUR", Amount: 100, Lang: "es"},
			mockCache: hit(0.9123),
			expectedResult: &model.ConversionResult{
				Result: "Conversión exitosa", From: "USD", To: "EUR",
				Amount: 100, Converted: 91.23, Rate: 0.9123,
			},
		},
		{
			name:      "Success - Unknown Language Uses Default",
			request:   model.ConversionRequest{From: "USD", To: "JPY", Amount: 2.5, Lang: "fr"},
			mockCache: hit(151.337),
			expectedResult: &model.ConversionResult{
				Result: "Conversion successful", From: "USD", To: "JPY",
				Amount: 2.5, Converted: 378.34, Rate: 151.337,
			},
		},
		{
			name:      "Success - Negative Amount",
			request:   model.ConversionRequest{From: "USD", To: "EUR", Amount: -10},
			mockCache: hit(0.5),
			expectedResult: &model.ConversionResult{
				Result: "Conversion successful", From: "USD", To: "EUR",
				Amount: -10, Converted: -5, Rate: 0.5,
			},
		},
		{
			name:          "Error - Zero Amount",
			request:       model.ConversionRequest{From: "USD", To: "EUR", Amount: 0},
			mockCache:     MockRateCache{},
			expectedError: ErrInvalidInput,
		},
		{
			name:          "Error - NaN Amount",
			request:       model.ConversionRequest{From: "USD", To: "EUR", Amount: math.NaN()},
			mockCache:     MockRateCache{},
			expectedError: ErrInvalidInput,
		},
		{
			name:          "Error - Missing From",
			request:       model.ConversionRequest{To: "EUR", Amount: 10},
			mockCache:     MockRateCache{},
			expectedError: ErrInvalidInput,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {

			sink := &MockEventSink{}
			svc := newTestService(&MockRateProvider{}, &tc.mockCache, sink)

			result, err := svc.Convert(context.Background(), tc.request)

			if (tc.expectedError != nil && err == nil) || (tc.expectedError == nil && err != nil) {
				t.Fatalf("Expected error: %v, got: %v", tc.expectedError, err)
			}

			if tc.expectedError != nil {
				if !errors.Is(err, tc.expectedError) {
					t.Errorf("Expected error to contain: %v, got: %v", tc.expectedError, err)
				}
				if len(sink.Events) != 0 {
					t.Errorf("Expected no events, got: %d", len(sink.Events))
				}
				return
			}

			if *result != *tc.expectedResult {
				t.Errorf("Expected result: %+v, got: %+v", *tc.expectedResult, *result)
			}

			events := sink.Named(model.EventConversion)
			if len(events) != 1 {
				t.Fatalf("Expected 1 conversion event, got: %d", len(events))
			}
		})
	}
}

func TestConversionService_ConversionEvent(t *testing.T) {
	var calls atomic.Int32
	sink := &MockEventSink{}
	svc := newTestService(countingProvider(0.9123, &calls), cache.NewMemoryCache(logger.Discard()), sink)

	_, err := svc.Convert(context.Background(), model.ConversionRequest{From: "USD", To: "EUR", Amount: 100})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	events := sink.Named(model.EventConversion)
	if len(events) != 1 {
		t.Fatalf("Expected 1 conversion event, got: %d", len(events))
	}
	if events[0].Details != "100 USD -> 91.23 EUR" {
		t.Errorf("Unexpected event details: %q", events[0].Details)
	}
}

func TestConversionService_APIErrorEvent(t *testing.T) {
	sink := &MockEventSink{}
	provider := &MockRateProvider{
		FetchRateFunc: func(ctx context.Context, pair model.CurrencyPair) (float64, error) {
			return 0, fmt.Errorf("%w: API returned non-OK status: 503", ports.ErrUpstreamUnavailable)
		},
	}
	svc := newTestService(provider, cache.NewMemoryCache(logger.Discard()), sink)

	_, err := svc.Convert(context.Background(), model.ConversionRequest{From: "USD", To: "EUR", Amount: 1})
	if !errors.Is(err, ErrExternalAPI) {
		t.Fatalf("Expected ErrExternalAPI, got: %v", err)
	}

	if n := len(sink.Named(model.EventAPIError)); n != 1 {
		t.Errorf("Expected 1 api_error event, got: %d", n)
	}
	if n := len(sink.Named(model.EventConversion)); n != 0 {
		t.Errorf("Expected no conversion events, got: %d", n)
	}
}

func TestConversionService_CacheIdempotence(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(countingProvider(0.9123, &calls), cache.NewMemoryCache(logger.Discard()), &MockEventSink{})

	for i := 0; i < 5; i++ {
		result, err := svc.Convert(context.Background(), model.ConversionRequest{From: "USD", To: "EUR", Amount: 100})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Converted != 91.23 {
			t.Errorf("Expected converted 91.23, got: %f", result.Converted)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("Expected provider to be called once, got: %d", got)
	}
}

func TestConversionService_RefetchAfterTTL(t *testing.T) {
	var calls atomic.Int32
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	memCache := cache.NewMemoryCache(logger.Discard()).WithClock(func() time.Time { return now })
	svc := newTestService(countingProvider(1.25, &calls), memCache, &MockEventSink{})

	pair := model.CurrencyPair{From: "EUR", To: "USD"}

	if _, err := svc.GetRate(context.Background(), pair); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	now = now.Add(30 * time.Minute)
	if _, err := svc.GetRate(context.Background(), pair); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("Expected 1 provider call within ttl, got: %d", got)
	}

	now = now.Add(31 * time.Minute)
	if _, err := svc.GetRate(context.Background(), pair); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("Expected 2 provider calls after ttl, got: %d", got)
	}
}

func TestConversionService_ConcurrentMissesShareFetch(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	provider := &MockRateProvider{
		FetchRateFunc: func(ctx context.Context, pair model.CurrencyPair) (float64, error) {
			calls.Add(1)
			<-release
			return 0.9, nil
		},
	}
	svc := newTestService(provider, cache.NewMemoryCache(logger.Discard()), &MockEventSink{})

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			quote, err := svc.GetRate(context.Background(), model.CurrencyPair{From: "USD", To: "EUR"})
			if err == nil && quote.Rate != 0.9 {
				err = fmt.Errorf("unexpected rate %f", quote.Rate)
			}
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected a single provider call, got: %d", got)
	}
}

func TestRoundConverted(t *testing.T) {
	testCases := []struct {
		amount, rate, want float64
	}{
		{100, 0.9123, 91.23},
		{1, 0.005, 0.01},
		{10, 1.23456, 12.35},
		{3, 0.3333333, 1},
		{-10, 0.12345, -1.23},
		{1e6, 151.4321, 151432100},
	}

	for _, tc := range testCases {
		got := roundConverted(tc.amount, tc.rate)
		if got != tc.want {
			t.Errorf("roundConverted(%v, %v) = %v, want %v", tc.amount, tc.rate, got, tc.want)
		}
	}
}
