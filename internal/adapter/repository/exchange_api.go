package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
	"currency-converter/internal/metrics"
	"currency-converter/pkg/logger"
)

var _ ports.RateProvider = (*ExchangeAPI)(nil)

const maxBodyBytes = 1 << 20

// ExchangeAPI talks to exchangerate-api v6: GET <base>/<key>/pair/<from>/<to>.
type ExchangeAPI struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
	metrics    *metrics.Metrics
}

func NewExchangeAPI(baseURL, apiKey string, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *ExchangeAPI {
	return &ExchangeAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:     log,
		metrics: m,
	}
}

// FetchRate makes a single attempt. Transport errors, non-200 answers and
// payloads without a numeric conversion_rate wrap ports.ErrUpstreamUnavailable;
// a "result" other than "success" wraps ports.ErrInvalidCurrency.
func (e *ExchangeAPI) FetchRate(ctx context.Context, pair model.CurrencyPair) (rate float64, err error) {
	start := time.Now()
	defer func() {
		e.metrics.UpstreamRequestDuration.Observe(time.Since(start).Seconds())
		e.metrics.UpstreamRequestsTotal.WithLabelValues(outcome(err)).Inc()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.pairURL(pair), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create request: %v", ports.ErrUpstreamUnavailable, err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to send request: %v", ports.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read response: %v", ports.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: API returned non-OK status: %d: %s",
			ports.ErrUpstreamUnavailable, resp.StatusCode, truncate(string(body), 200))
	}

	if !gjson.ValidBytes(body) {
		return 0, fmt.Errorf("%w: API returned invalid JSON", ports.ErrUpstreamUnavailable)
	}

	parsed := gjson.ParseBytes(body)
	if result := parsed.Get("result").String(); result != "success" {
		return 0, fmt.Errorf("%w: %s/%s rejected by provider: %s",
			ports.ErrInvalidCurrency, pair.From, pair.To, parsed.Get("error-type").String())
	}

	conversionRate := parsed.Get("conversion_rate")
	if conversionRate.Type != gjson.Number {
		return 0, fmt.Errorf("%w: conversion_rate missing from response", ports.ErrUpstreamUnavailable)
	}

	e.log.Debug("Fetched exchange rate", "pair", pair.String(), "rate", conversionRate.Float())
	return conversionRate.Float(), nil
}

func (e *ExchangeAPI) pairURL(pair model.CurrencyPair) string {
	return fmt.Sprintf("%s/%s/pair/%s/%s",
		e.baseURL,
		url.PathEscape(e.apiKey),
		url.PathEscape(pair.From.String()),
		url.PathEscape(pair.To.String()),
	)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ports.ErrInvalidCurrency):
		return "invalid_currency"
	default:
		return "unavailable"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
