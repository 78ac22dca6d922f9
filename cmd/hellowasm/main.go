// Command hellowasm computes Fibonacci numbers and greets people, either
// natively or through the hellowasm WebAssembly module.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hellowasm/hellowasm-go/internal/config"
	"github.com/hellowasm/hellowasm-go/internal/metrics"
	"github.com/spf13/cobra"
)

var (
	// global flags
	configPath      string
	verbose         bool
	logFormat       string
	wasmPath        string
	metricsTextfile string

	// resolved in PersistentPreRunE
	settings *config.File
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hellowasm",
	Short: "Naive Fibonacci and greetings, natively or in WebAssembly",
	Long: `hellowasm runs the two functions of the hellowasm module:
fib_export, a naive recursive Fibonacci, and greet, which sends
"Hello, <name>" to the host's alert function.

Without --wasm the functions run natively. With --wasm the given guest
module is loaded into an embedded WebAssembly runtime and its exports are
called instead.

Settings are read from --config (YAML), then HELLOWASM_* environment
variables, then flags.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (YAML)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text, json")
	pf.StringVarP(&wasmPath, "wasm", "w", "", "Run through this guest module instead of natively (\"auto\" searches ./build and $XDG_DATA_HOME/hellowasm)")
	pf.StringVar(&metricsTextfile, "metrics-textfile", "",
		"Write Prometheus metrics to this file on exit")

	if err := registerFlagCompletions(rootCmd); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSettings merges the config file, environment and flags.
func loadSettings(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}

	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if wasmPath != "" {
		cfg.Wasm.Module = wasmPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	settings = cfg
	logger = newLogger(cmd.ErrOrStderr(), cfg.Log)
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// writeMetrics writes m when --metrics-textfile is set.
func writeMetrics(m *metrics.Metrics) error {
	if metricsTextfile == "" {
		return nil
	}
	if err := m.WriteTextfile(metricsTextfile); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
