// Package config loads hellowasm settings from a YAML file and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/hellowasm/hellowasm-go/internal/bench"
	"github.com/hellowasm/hellowasm-go/internal/safefile"
	"github.com/hellowasm/hellowasm-go/internal/wasm"
	"github.com/hellowasm/hellowasm-go/pkg/fib"
	"gopkg.in/yaml.v3"
)

const (
	// MaxConfigFileSize is the maximum size of a config file (64KB).
	MaxConfigFileSize = 64 * 1024

	// SupportedVersion is the config file format version.
	SupportedVersion = 1
)

// Environment variables that override file settings.
const (
	EnvLabel    = "HELLOWASM_LABEL"
	EnvIndex    = "HELLOWASM_INDEX"
	EnvWasm     = "HELLOWASM_WASM"
	EnvTimeout  = "HELLOWASM_TIMEOUT"
	EnvLogLevel = "HELLOWASM_LOG_LEVEL"
)

// File is the on-disk configuration.
type File struct {
	Version int         `yaml:"version"`
	Bench   BenchConfig `yaml:"bench"`
	Wasm    WasmConfig  `yaml:"wasm"`
	Log     LogConfig   `yaml:"log"`
}

// BenchConfig configures the benchmark line.
type BenchConfig struct {
	Index uint32 `yaml:"index"`
	Label string `yaml:"label"`
}

// WasmConfig configures the guest host.
type WasmConfig struct {
	Module          string        `yaml:"module"`  // path to a guest .wasm, "auto" to search; empty uses the native bridge
	Timeout         time.Duration `yaml:"timeout"` // per call
	CacheDir        string        `yaml:"cache_dir"`
	NoCache         bool          `yaml:"no_cache"`
	ModuleCacheSize int           `yaml:"module_cache_size"`
	AlertRate       float64       `yaml:"alert_rate"` // alerts per second, 0 = unlimited
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// ValidationError reports an invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Default returns the built-in configuration.
func Default() *File {
	return &File{
		Version: SupportedVersion,
		Bench: BenchConfig{
			Index: bench.DefaultIndex,
			Label: bench.DefaultLabel,
		},
		Wasm: WasmConfig{
			Timeout:         wasm.DefaultTimeout,
			ModuleCacheSize: wasm.DefaultModuleCacheSize,
			AlertRate:       wasm.DefaultAlertRate,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config file at path on top of Default and validates it.
func Load(path string) (*File, error) {
	data, err := safefile.ReadFile(path, MaxConfigFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
// Unknown keys are rejected and the version key is required.
func Parse(data []byte) (*File, error) {
	cfg := Default()
	cfg.Version = 0 // must come from the file

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("config file is empty")
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Version == 0 {
		return nil, &ValidationError{Field: "version", Message: fmt.Sprintf("required (set version: %d)", SupportedVersion)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables looked up with
// lookup (os.LookupEnv in production).
func (f *File) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLabel); ok && v != "" {
		f.Bench.Label = v
	}
	if v, ok := lookup(EnvIndex); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return &ValidationError{Field: EnvIndex, Message: fmt.Sprintf("not a non-negative integer: %q", v)}
		}
		f.Bench.Index = uint32(n)
	}
	if v, ok := lookup(EnvWasm); ok && v != "" {
		f.Wasm.Module = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ValidationError{Field: EnvTimeout, Message: err.Error()}
		}
		f.Wasm.Timeout = d
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		f.Log.Level = v
	}
	return f.Validate()
}

// Validate checks every setting.
func (f *File) Validate() error {
	if f.Version != SupportedVersion {
		return &ValidationError{Field: "version", Message: fmt.Sprintf("unsupported version %d (expected %d)", f.Version, SupportedVersion)}
	}
	if f.Bench.Label == "" {
		return &ValidationError{Field: "bench.label", Message: "must not be empty"}
	}
	if limit := fib.MaxIndex[uint64](); uint(f.Bench.Index) > limit {
		return &ValidationError{Field: "bench.index", Message: fmt.Sprintf("must be at most %d", limit)}
	}
	if f.Wasm.Timeout <= 0 {
		return &ValidationError{Field: "wasm.timeout", Message: "must be positive"}
	}
	if f.Wasm.ModuleCacheSize <= 0 {
		return &ValidationError{Field: "wasm.module_cache_size", Message: "must be positive"}
	}
	if f.Wasm.AlertRate < 0 {
		return &ValidationError{Field: "wasm.alert_rate", Message: "must not be negative"}
	}
	if _, err := parseLevel(f.Log.Level); err != nil {
		return &ValidationError{Field: "log.level", Message: err.Error()}
	}
	switch f.Log.Format {
	case "text", "json":
	default:
		return &ValidationError{Field: "log.format", Message: fmt.Sprintf("unknown format %q (text, json)", f.Log.Format)}
	}
	return nil
}

// SlogLevel returns the configured level. Validate has already rejected
// unknown names.
func (l LogConfig) SlogLevel() slog.Level {
	level, _ := parseLevel(l.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level %q (debug, info, warn, error)", s)
	}
}
