package http

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"currency-converter/internal/metrics"
	"currency-converter/pkg/logger"
)

// Controller registers its routes on the engine.
type Controller interface {
	RegisterRoutes(r *gin.Engine)
}

type RouterConfig struct {
	CORSOrigins []string
	// RateLimit is in limiter format, e.g. "100-M". Empty disables limiting.
	RateLimit    string
	CacheBackend string
}

type Router struct {
	handler     *Handler
	controllers []Controller
	limiter     *limiter.Limiter
	cfg         RouterConfig
	log         *logger.Logger
	metrics     *metrics.Metrics
}

func NewRouter(handler *Handler, cfg RouterConfig, log *logger.Logger, metrics *metrics.Metrics, controllers ...Controller) (*Router, error) {
	r := &Router{
		handler:     handler,
		controllers: controllers,
		cfg:         cfg,
		log:         log,
		metrics:     metrics,
	}

	if cfg.RateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit %q: %w", cfg.RateLimit, err)
		}
		r.limiter = limiter.New(memory.NewStore(), rate)
	}

	return r, nil
}

func (r *Router) SetupRoutes() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(r.corsConfig()))
	engine.Use(loggingMiddleware(r.log, r.metrics))

	api := engine.Group("/")
	if r.limiter != nil {
		api.Use(rateLimitMiddleware(r.limiter, r.log))
	}
	api.GET("/convert", r.handler.ConvertCurrencyHandler)
	api.GET("/rate", r.handler.GetRateHandler)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "cache": r.cfg.CacheBackend})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	for _, c := range r.controllers {
		c.RegisterRoutes(engine)
	}

	return engine
}

func (r *Router) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", requestIDHeader},
	}
	if len(r.cfg.CORSOrigins) == 0 || slices.Contains(r.cfg.CORSOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = r.cfg.CORSOrigins
	}
	return cfg
}
