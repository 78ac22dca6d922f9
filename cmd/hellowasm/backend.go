package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hellowasm/hellowasm-go/internal/config"
	"github.com/hellowasm/hellowasm-go/internal/metrics"
	"github.com/hellowasm/hellowasm-go/internal/modfinder"
	"github.com/hellowasm/hellowasm-go/internal/wasm"
	"github.com/hellowasm/hellowasm-go/pkg/bridge"
	"github.com/hellowasm/hellowasm-go/pkg/fib"
)

// backend runs the exported functions natively or in a guest module.
type backend interface {
	// Name labels metrics: "native" or "wasm".
	Name() string
	Fib(ctx context.Context, n uint32) (uint64, error)
	// MaxIndex is the largest index Fib returns without wrapping.
	MaxIndex() uint
	Greet(ctx context.Context, name string) error
}

type nativeBackend struct {
	bridge *bridge.Bridge
}

func (nativeBackend) Name() string { return "native" }

// Fib uses the 64-bit entry point, like the benchmark program.
func (nativeBackend) Fib(_ context.Context, n uint32) (uint64, error) {
	return fib.Fib64(n), nil
}

func (nativeBackend) MaxIndex() uint { return fib.MaxIndex[uint64]() }

func (b nativeBackend) Greet(_ context.Context, name string) error {
	b.bridge.Greet(name)
	return nil
}

type wasmBackend struct {
	module *wasm.Module
}

func (wasmBackend) Name() string { return "wasm" }

func (b wasmBackend) Fib(ctx context.Context, n uint32) (uint64, error) {
	v, err := b.module.Fib(ctx, n)
	return uint64(v), err
}

func (wasmBackend) MaxIndex() uint { return fib.MaxIndex[uint32]() }

func (b wasmBackend) Greet(ctx context.Context, name string) error {
	return b.module.Greet(ctx, name)
}

// printAlerter prints each alert as "alert: <message>".
func printAlerter(out io.Writer) bridge.Alerter {
	return bridge.AlertFunc(func(message string) {
		fmt.Fprintf(out, "alert: %s\n", message)
	})
}

// autoModule selects the newest guest module found by modfinder.
const autoModule = "auto"

// openBackend returns the native backend, or loads cfg.Wasm.Module.
// The cleanup function is always non-nil, even on error.
func openBackend(ctx context.Context, cfg *config.File, alerter bridge.Alerter, m *metrics.Metrics, logger *slog.Logger) (backend, func(), error) {
	noop := func() {}

	if cfg.Wasm.Module == "" {
		b, err := bridge.New(alerter)
		if err != nil {
			return nil, noop, err
		}
		return nativeBackend{bridge: b}, noop, nil
	}

	path := cfg.Wasm.Module
	if path == autoModule {
		found, err := modfinder.FindModule("")
		if err != nil {
			return nil, noop, fmt.Errorf("wasm module: %w", err)
		}
		path = found
	}

	opts := []wasm.Option{
		wasm.WithLogger(logger),
		wasm.WithMetrics(m),
		wasm.WithModuleCacheSize(cfg.Wasm.ModuleCacheSize),
		wasm.WithAlertRateLimit(cfg.Wasm.AlertRate, int(max(cfg.Wasm.AlertRate, 1))),
	}
	if !cfg.Wasm.NoCache {
		dir := cfg.Wasm.CacheDir
		if dir == "" {
			var err error
			if dir, err = wasm.DefaultCacheDir(); err != nil && logger != nil {
				logger.Warn("no compilation cache directory", "error", err)
			}
		}
		if dir != "" {
			opts = append(opts, wasm.WithCompilationCacheDir(dir))
		}
	}

	host, err := wasm.NewHost(ctx, alerter, opts...)
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() { host.Close(context.Background()) }

	module, err := host.LoadFile(ctx, path)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("wasm module: %w", err)
	}
	module.SetTimeout(cfg.Wasm.Timeout)

	if logger != nil {
		logger.Debug("using wasm backend", "module", path, "digest", module.Digest())
	}
	return wasmBackend{module: module}, cleanup, nil
}
