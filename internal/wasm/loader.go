package wasm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hellowasm/hellowasm-go/internal/metrics"
	"github.com/hellowasm/hellowasm-go/internal/safefile"
	"github.com/hellowasm/hellowasm-go/pkg/bridge"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// MaxWasmFileSize is the maximum size of a Wasm module (10MB).
const MaxWasmFileSize = 10 * 1024 * 1024

// Host runs hellowasm guest modules and provides their imports.
// It is safe for concurrent use.
type Host struct {
	mu            sync.Mutex
	runtime       wazero.Runtime
	cache         wazero.CompilationCache
	modules       *moduleCache
	hostFunctions *hostFunctions
	logger        *slog.Logger
	metrics       *metrics.Metrics
	instanceCount atomic.Uint64 // for unique instance names
}

// NewHost creates a runtime whose env.alert import forwards to alerter.
// A nil alerter fails with bridge.ErrNoAlerter.
func NewHost(ctx context.Context, alerter bridge.Alerter, opts ...Option) (*Host, error) {
	if alerter == nil {
		return nil, bridge.ErrNoAlerter
	}
	cfg := applyOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid host options: %w", err)
	}

	// Close instances when the call context is done, so timeouts stop guests.
	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)

	var cache wazero.CompilationCache
	if cfg.cacheDir != "" {
		c, err := wazero.NewCompilationCacheWithDir(cfg.cacheDir)
		if err == nil {
			cache = c
			rtConfig = rtConfig.WithCompilationCache(c)
			if cfg.logger != nil {
				cfg.logger.Debug("using wasm compilation cache", "dir", cfg.cacheDir)
			}
		} else if cfg.logger != nil {
			cfg.logger.Warn("failed to create compilation cache, continuing without cache", "error", err)
		}
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	cleanup := func() {
		// Background context: ctx may already be cancelled.
		cleanupCtx := context.Background()
		rt.Close(cleanupCtx)
		if cache != nil {
			cache.Close(cleanupCtx)
		}
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		cleanup()
		return nil, &WasmRuntimeError{Operation: "wasi instantiation", Err: err}
	}

	hf := newHostFunctions(alerter, cfg)

	// alert: (ptr, len) -> ()
	_, err := rt.NewHostModuleBuilder(bridge.ImportModule).
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, msgLen uint32) {
			hf.alert(ctx, m, ptr, msgLen)
		}).
		Export(bridge.ImportAlert).
		Instantiate(ctx)
	if err != nil {
		cleanup()
		return nil, &WasmRuntimeError{Operation: "host functions registration", Err: err}
	}

	modules, err := newModuleCache(cfg.moduleCacheSize, cfg.logger)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create module cache: %w", err)
	}

	return &Host{
		runtime:       rt,
		cache:         cache,
		modules:       modules,
		hostFunctions: hf,
		logger:        cfg.logger,
		metrics:       cfg.metrics,
	}, nil
}

// LoadFile reads, compiles and validates the module at path.
func (h *Host) LoadFile(ctx context.Context, path string) (*Module, error) {
	wasmBytes, err := safefile.ReadFile(path, MaxWasmFileSize)
	if err != nil {
		switch {
		case errors.Is(err, safefile.ErrTooLarge):
			return nil, ErrFileTooLarge
		case errors.Is(err, safefile.ErrNotRegularFile):
			return nil, fmt.Errorf("wasm path is not a regular file: %w", err)
		}
		return nil, fmt.Errorf("failed to read wasm file: %w", err)
	}
	return h.LoadBytes(ctx, wasmBytes)
}

// LoadBytes compiles and validates a module. Identical bytes share one
// compiled module.
func (h *Host) LoadBytes(ctx context.Context, wasmBytes []byte) (*Module, error) {
	if len(wasmBytes) > MaxWasmFileSize {
		return nil, ErrFileTooLarge
	}

	h.mu.Lock()
	rt := h.runtime
	h.mu.Unlock()
	if rt == nil {
		return nil, ErrHostClosed
	}

	sum := sha256.Sum256(wasmBytes)
	digest := hex.EncodeToString(sum[:])

	compiled, cached, err := h.modules.getOrCompile(ctx, digest, func(ctx context.Context) (wazero.CompiledModule, error) {
		compiled, err := rt.CompileModule(ctx, wasmBytes)
		if err != nil {
			return nil, &WasmRuntimeError{Operation: "wasm compilation", Err: fmt.Errorf("%w: %w", ErrInvalidWasm, err)}
		}
		if err := validateABI(compiled); err != nil {
			compiled.Close(context.Background())
			return nil, err
		}
		return compiled, nil
	})
	if err != nil {
		return nil, err
	}

	if h.logger != nil {
		h.logger.Debug("wasm module loaded", "digest", digest, "cached", cached)
	}

	m := &Module{
		host:     h,
		compiled: compiled,
		digest:   digest,
		hasFree:  hasExport(compiled, bridge.ExportFree),
	}
	m.timeout.Store(int64(DefaultTimeout))
	return m, nil
}

// Close releases the runtime and every compiled module.
// Safe to call multiple times.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.runtime == nil {
		return nil
	}

	h.modules.purge()

	var firstErr error
	if err := h.runtime.Close(ctx); err != nil {
		firstErr = err
	}
	h.runtime = nil

	if h.cache != nil {
		if err := h.cache.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		h.cache = nil
	}
	return firstErr
}

// Function signatures the host expects.
var (
	i32       = api.ValueTypeI32
	abiExport = map[string]signature{
		bridge.ExportFib:   {params: []api.ValueType{i32}, results: []api.ValueType{i32}},
		bridge.ExportGreet: {params: []api.ValueType{i32, i32}},
		bridge.ExportAlloc: {params: []api.ValueType{i32}, results: []api.ValueType{i32}},
	}
	optionalExport = map[string]signature{
		bridge.ExportFree: {params: []api.ValueType{i32, i32}},
	}
	alertImport = signature{params: []api.ValueType{i32, i32}}
)

type signature struct {
	params  []api.ValueType
	results []api.ValueType
}

func (s signature) matches(def api.FunctionDefinition) bool {
	return slices.Equal(s.params, def.ParamTypes()) && slices.Equal(s.results, def.ResultTypes())
}

func (s signature) String() string {
	return fmt.Sprintf("(%s) -> (%s)", typeNames(s.params), typeNames(s.results))
}

func typeNames(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return fmt.Sprint(names)
}

// validateABI checks the module's exports and imports against the bridge.
// It does not check behavior.
func validateABI(compiled wazero.CompiledModule) error {
	exports := compiled.ExportedFunctions()

	for _, name := range []string{bridge.ExportFib, bridge.ExportGreet, bridge.ExportAlloc} {
		def, ok := exports[name]
		if !ok {
			return &ABIError{Function: name, Reason: "missing required export", Err: ErrMissingExport}
		}
		if sig := abiExport[name]; !sig.matches(def) {
			return &ABIError{Function: name, Reason: "signature must be " + sig.String()}
		}
	}
	for name, sig := range optionalExport {
		if def, ok := exports[name]; ok && !sig.matches(def) {
			return &ABIError{Function: name, Reason: "signature must be " + sig.String()}
		}
	}

	if _, ok := compiled.ExportedMemories()["memory"]; !ok {
		return &ABIError{Function: "memory", Reason: "missing exported memory", Err: ErrMissingExport}
	}

	for _, def := range compiled.ImportedFunctions() {
		moduleName, name, _ := def.Import()
		switch {
		case moduleName == wasi_snapshot_preview1.ModuleName:
			continue
		case moduleName == bridge.ImportModule && name == bridge.ImportAlert:
			if !alertImport.matches(def) {
				return &ABIError{Function: moduleName + "." + name, Reason: "signature must be " + alertImport.String()}
			}
		default:
			return &ABIError{Function: moduleName + "." + name, Reason: "unsupported import"}
		}
	}

	return nil
}

func hasExport(compiled wazero.CompiledModule, name string) bool {
	_, ok := compiled.ExportedFunctions()[name]
	return ok
}

// DefaultCacheDir returns the compilation cache directory, following the XDG
// Base Directory specification, and creates it with user-only permissions.
func DefaultCacheDir() (string, error) {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(cacheHome, "hellowasm", "wasm")

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
