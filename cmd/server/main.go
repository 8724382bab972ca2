package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"currency-converter/internal/adapter/cache"
	"currency-converter/internal/adapter/events"
	httpRouter "currency-converter/internal/adapter/http"
	"currency-converter/internal/adapter/repository"
	"currency-converter/internal/config"
	"currency-converter/internal/domain/ports"
	"currency-converter/internal/i18n"
	"currency-converter/internal/metrics"
	"currency-converter/internal/service"
	"currency-converter/pkg/logger"
)

// @title        Currency Converter Service API
// @version      1.0.0
// @description  Converts amounts between currencies using live exchange rates.
// @BasePath     /
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(os.Getenv("LOG_LEVEL")).Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	log.Info("Starting currency converter service",
		"port", cfg.Server.Port,
		"api_key", cfg.MaskedAPIKey(),
		"default_language", cfg.I18n.DefaultLanguage,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appMetrics := metrics.NewMetrics(prometheus.DefaultRegisterer)

	rateCache, backend := cache.NewRateCache(ctx, cfg.Redis, log)
	if sweeper, ok := rateCache.(*cache.MemoryCache); ok {
		go sweepExpired(ctx, sweeper, cfg.Cache.SweepInterval, log)
	}

	rateProvider := repository.NewExchangeAPI(
		cfg.ExchangeAPI.BaseURL,
		cfg.ExchangeAPI.Key,
		cfg.ExchangeAPI.Timeout,
		log,
		appMetrics,
	)

	sink := newEventSink(cfg, log)
	translator := i18n.NewTranslator(cfg.I18n.DefaultLanguage)

	conversionService := service.NewConversionService(
		rateProvider,
		rateCache,
		translator,
		sink,
		cfg.Cache.TTL,
		appMetrics,
		log,
	)

	gin.SetMode(gin.ReleaseMode)
	handler := httpRouter.NewHandler(conversionService, translator, cfg.I18n.DefaultLanguage, log, appMetrics)
	router, err := httpRouter.NewRouter(handler, httpRouter.RouterConfig{
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateLimit:    cfg.Server.RateLimit,
		CacheBackend: string(backend),
	}, log, appMetrics, httpRouter.NewPages(translator, string(backend), cfg.Cache.TTL))
	if err != nil {
		log.Error("Failed to build router", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port, "cache", backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := sink.Close(); err != nil {
		log.Error("Failed to close event sinks", "error", err)
	}
	if closer, ok := rateCache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Error("Failed to close cache", "error", err)
		}
	}

	log.Info("Server exited")
}

// newEventSink always logs events and adds kafka and posthog when configured.
func newEventSink(cfg *config.Config, log *logger.Logger) ports.EventSink {
	sinks := events.MultiSink{events.NewLogSink(log)}

	if len(cfg.Kafka.Brokers) > 0 {
		log.Info("Publishing events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		sinks = append(sinks, events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, log))
	}

	if cfg.Posthog.APIKey != "" {
		ph, err := events.NewPosthogSink(cfg.Posthog.APIKey, cfg.Posthog.Endpoint, log)
		if err != nil {
			log.Warn("Posthog disabled", "error", err)
		} else {
			sinks = append(sinks, ph)
		}
	}

	return sinks
}

// sweepExpired drops expired entries from the in-memory cache until ctx is done.
func sweepExpired(ctx context.Context, c *cache.MemoryCache, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.ClearExpired(ctx); err != nil {
				log.Error("Failed to clear expired cache entries", "error", err)
			}
		case <-ctx.Done():
			log.Info("Stopping cache sweeper")
			return
		}
	}
}
