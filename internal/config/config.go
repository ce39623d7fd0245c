// Package config handles application configuration from environment variables
package config

import (
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/postboard/cache"
)

// Config holds all application configuration
type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	APIBaseURL  string        `env:"POSTBOARD_API_BASE_URL" envDefault:"https://jsonplaceholder.typicode.com"`
	StaleTime   time.Duration `env:"POSTBOARD_STALE_TIME" envDefault:"1m"`
	HTTPTimeout time.Duration `env:"POSTBOARD_HTTP_TIMEOUT" envDefault:"20s"`
	PageSize    int           `env:"POSTBOARD_PAGE_SIZE" envDefault:"12"`
	LogLevel    string        `env:"POSTBOARD_LOG_LEVEL" envDefault:"info"`
	Retry       RetryConfig
}

// RetryConfig controls how failed reads are retried
type RetryConfig struct {
	MaxAttempts     int           `env:"POSTBOARD_RETRY_MAX_ATTEMPTS" envDefault:"4"`
	InitialInterval time.Duration `env:"POSTBOARD_RETRY_INITIAL_INTERVAL" envDefault:"200ms"`
	MaxInterval     time.Duration `env:"POSTBOARD_RETRY_MAX_INTERVAL" envDefault:"5s"`
	NoRetryStatuses []int         `env:"POSTBOARD_NO_RETRY_STATUSES" envDefault:"401,404" envSeparator:","`
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the application cannot run with
func (c Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.Newf("POSTBOARD_API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.StaleTime < 0 {
		return errors.Newf("POSTBOARD_STALE_TIME must not be negative, got %s", c.StaleTime)
	}
	if c.HTTPTimeout <= 0 {
		return errors.Newf("POSTBOARD_HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.Newf("POSTBOARD_RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialInterval <= 0 || c.Retry.MaxInterval < c.Retry.InitialInterval {
		return errors.Newf("retry intervals must satisfy 0 < initial (%s) <= max (%s)", c.Retry.InitialInterval, c.Retry.MaxInterval)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return errors.Newf("POSTBOARD_PAGE_SIZE must be between 1-100, got %d", c.PageSize)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(err, "POSTBOARD_LOG_LEVEL")
	}
	return nil
}

// RetryPolicy converts the retry settings for the cache
func (c Config) RetryPolicy() cache.RetryPolicy {
	return cache.RetryPolicy{
		MaxAttempts:     c.Retry.MaxAttempts,
		InitialInterval: c.Retry.InitialInterval,
		MaxInterval:     c.Retry.MaxInterval,
		SkipStatuses:    c.Retry.NoRetryStatuses,
	}
}

// Level returns the configured log level, defaulting to info
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
