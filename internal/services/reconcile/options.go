package reconcile

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// DefaultInterval is the polling cadence.
const DefaultInterval = time.Second

// DefaultConcurrency bounds the number of peers queried at once.
const DefaultConcurrency = 8

// Option configures a Reconciler.
type Option func(*Config)

// Config holds the Reconciler settings.
type Config struct {
	Clock       clock.Clock
	Interval    time.Duration
	Concurrency int
	Metrics     *Metrics
	Logger      *zap.Logger
}

// DefaultConfig returns the default settings.
func DefaultConfig() *Config {
	return &Config{
		Clock:       clock.New(),
		Interval:    DefaultInterval,
		Concurrency: DefaultConcurrency,
		Logger:      zap.NewNop(),
	}
}

// WithClock sets the clock driving the ticker.
func WithClock(c clock.Clock) Option {
	return func(cfg *Config) {
		cfg.Clock = c
	}
}

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.Interval = d
		}
	}
}

// WithConcurrency bounds concurrent peer queries.
func WithConcurrency(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.Concurrency = n
		}
	}
}

// WithMetrics sets the collectors updated on each tick.
func WithMetrics(m *Metrics) Option {
	return func(cfg *Config) {
		cfg.Metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}
