package wasm

import (
	"fmt"
	"log/slog"

	"github.com/hellowasm/hellowasm-go/internal/metrics"
	"golang.org/x/time/rate"
)

// Option configures a Host using the functional options pattern.
type Option func(*hostConfig)

type hostConfig struct {
	logger          *slog.Logger
	cacheDir        string // empty disables the on-disk compilation cache
	moduleCacheSize int
	alertRate       rate.Limit
	alertBurst      int
	metrics         *metrics.Metrics
}

func defaultHostConfig() *hostConfig {
	return &hostConfig{
		moduleCacheSize: DefaultModuleCacheSize,
		alertRate:       DefaultAlertRate,
		alertBurst:      DefaultAlertRate,
	}
}

func applyOptions(opts []Option) *hostConfig {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

func (c *hostConfig) validate() error {
	if c.moduleCacheSize <= 0 {
		return fmt.Errorf("module cache size must be positive, got %d", c.moduleCacheSize)
	}
	if c.alertBurst <= 0 && c.alertRate != rate.Inf {
		return fmt.Errorf("alert burst must be positive, got %d", c.alertBurst)
	}
	return nil
}

// WithLogger sets the logger for host diagnostics.
// If logger is nil, logging is disabled (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(c *hostConfig) {
		c.logger = logger
	}
}

// WithCompilationCacheDir enables wazero's on-disk compilation cache in dir.
// See DefaultCacheDir.
func WithCompilationCacheDir(dir string) Option {
	return func(c *hostConfig) {
		c.cacheDir = dir
	}
}

// WithModuleCacheSize sets how many compiled modules the host indexes by digest.
func WithModuleCacheSize(n int) Option {
	return func(c *hostConfig) {
		c.moduleCacheSize = n
	}
}

// WithAlertRateLimit limits guest alert calls to perSecond with the given
// burst. A perSecond of zero or less removes the limit.
func WithAlertRateLimit(perSecond float64, burst int) Option {
	return func(c *hostConfig) {
		if perSecond <= 0 {
			c.alertRate = rate.Inf
			c.alertBurst = 0
			return
		}
		c.alertRate = rate.Limit(perSecond)
		c.alertBurst = burst
	}
}

// WithMetrics records export calls and alerts in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *hostConfig) {
		c.metrics = m
	}
}
