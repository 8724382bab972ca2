package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server      ServerConfig
	ExchangeAPI ExchangeAPIConfig
	Redis       RedisConfig
	Cache       CacheConfig
	I18n        I18nConfig
	Kafka       KafkaConfig
	Posthog     PosthogConfig
	Log         LogConfig
}

// ServerConfig is read from SERVER_*.
type ServerConfig struct {
	Port         int           `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	CORSOrigins  []string      `envconfig:"CORS_ORIGINS" default:"*"`
	// RateLimit uses the limiter format "<limit>-<period>", e.g. 100-M.
	RateLimit string `envconfig:"RATE_LIMIT" default:"100-M"`
}

// ExchangeAPIConfig is read from API_*.
type ExchangeAPIConfig struct {
	Key     string        `envconfig:"KEY"`
	BaseURL string        `envconfig:"BASE_URL" default:"https://v6.exchangerate-api.com/v6"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

// RedisConfig is read from REDIS_*.
type RedisConfig struct {
	URL         string        `envconfig:"URL" default:"redis://localhost:6379/0"`
	PingTimeout time.Duration `envconfig:"PING_TIMEOUT" default:"2s"`
	KeyPrefix   string        `envconfig:"KEY_PREFIX"`
}

// CacheConfig is read from CACHE_*.
type CacheConfig struct {
	TTL           time.Duration `envconfig:"TTL" default:"1h"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"10m"`
}

type I18nConfig struct {
	DefaultLanguage string `envconfig:"DEFAULT_LANGUAGE" default:"en"`
}

// KafkaConfig is read from KAFKA_*. An empty broker list disables the sink.
type KafkaConfig struct {
	Brokers []string `envconfig:"BROKERS"`
	Topic   string   `envconfig:"TOPIC" default:"conversions"`
}

// PosthogConfig is read from POSTHOG_*. An empty key disables the sink.
type PosthogConfig struct {
	APIKey   string `envconfig:"API_KEY"`
	Endpoint string `envconfig:"ENDPOINT" default:"https://eu.i.posthog.com"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

// LoadConfig reads .env when present, then the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	sections := []struct {
		prefix string
		target any
	}{
		{"SERVER", &cfg.Server},
		{"API", &cfg.ExchangeAPI},
		{"REDIS", &cfg.Redis},
		{"CACHE", &cfg.Cache},
		{"", &cfg.I18n},
		{"KAFKA", &cfg.Kafka},
		{"POSTHOG", &cfg.Posthog},
		{"LOG", &cfg.Log},
	}

	for _, s := range sections {
		if err := envconfig.Process(s.prefix, s.target); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("CACHE_TTL must be positive")
	}
	if c.ExchangeAPI.BaseURL == "" {
		return errors.New("API_BASE_URL must not be empty")
	}
	return nil
}

// MaskedAPIKey is safe to log.
func (c *Config) MaskedAPIKey() string {
	return maskValue(c.ExchangeAPI.Key)
}

func maskValue(v string) string {
	if len(v) <= 4 {
		if v == "" {
			return ""
		}
		return "****"
	}
	return v[:2] + "****" + v[len(v)-2:]
}
