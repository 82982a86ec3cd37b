// Package config loads resolver settings from ADVERT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	resolver "github.com/krisalay/advert-resolver"
	"github.com/krisalay/advert-resolver/cache"
	"github.com/krisalay/advert-resolver/eviction"
	"github.com/krisalay/advert-resolver/types"
)

// Config is the process-level configuration of a resolver deployment.
type Config struct {
	RetryCount        int           `env:"ADVERT_RETRY_COUNT" envDefault:"3"`
	CacheTTL          time.Duration `env:"ADVERT_CACHE_TTL" envDefault:"5m"`
	ErrorWindow       time.Duration `env:"ADVERT_ERROR_WINDOW" envDefault:"1h"`
	ErrorThreshold    int           `env:"ADVERT_ERROR_THRESHOLD" envDefault:"10"`
	MinRetainedErrors int           `env:"ADVERT_MIN_RETAINED_ERRORS" envDefault:"20"`
	RetryBackoff      time.Duration `env:"ADVERT_RETRY_BACKOFF" envDefault:"1s"`
	Serialize         bool          `env:"ADVERT_SERIALIZE" envDefault:"false"`

	CacheShards    int                `env:"ADVERT_CACHE_SHARDS" envDefault:"16"`
	CacheCapacity  int                `env:"ADVERT_CACHE_CAPACITY" envDefault:"0"`
	EvictionPolicy eviction.PolicyType `env:"ADVERT_EVICTION_POLICY" envDefault:"LRU"`
	SweepInterval  time.Duration      `env:"ADVERT_SWEEP_INTERVAL" envDefault:"1m"`

	LogLevel     string `env:"ADVERT_LOG_LEVEL" envDefault:"info"`
	MetricsAddr  string `env:"ADVERT_METRICS_ADDR"`
	OTelEndpoint string `env:"ADVERT_OTEL_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields the resolver does not check itself.
func (c Config) Validate() error {
	var errs []error
	if c.CacheShards < 1 {
		errs = append(errs, fmt.Errorf("ADVERT_CACHE_SHARDS must be >= 1, got %d", c.CacheShards))
	}
	if c.CacheCapacity < 0 {
		errs = append(errs, fmt.Errorf("ADVERT_CACHE_CAPACITY must be >= 0, got %d", c.CacheCapacity))
	}
	if !c.EvictionPolicy.Valid() {
		errs = append(errs, fmt.Errorf("ADVERT_EVICTION_POLICY %q is not one of LRU, FIFO", c.EvictionPolicy))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("ADVERT_SWEEP_INTERVAL must be >= 0, got %s", c.SweepInterval))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ResolverConfig returns the resolution policy part of c.
func (c Config) ResolverConfig() resolver.Config {
	return resolver.Config{
		RetryCount:        c.RetryCount,
		CacheTTL:          c.CacheTTL,
		ErrorWindow:       c.ErrorWindow,
		ErrorThreshold:    c.ErrorThreshold,
		MinRetainedErrors: c.MinRetainedErrors,
		RetryBackoff:      c.RetryBackoff,
		Serialize:         c.Serialize,
	}
}

// CacheOptions returns the options for a cache shared between resolvers.
func (c Config) CacheOptions(metrics types.Metrics) cache.Options {
	return cache.Options{
		Shards:     c.CacheShards,
		Capacity:   c.CacheCapacity,
		Eviction:   c.EvictionPolicy,
		DefaultTTL: c.CacheTTL,
		Metrics:    metrics,
	}
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("ADVERT_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
