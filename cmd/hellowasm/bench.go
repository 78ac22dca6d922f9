package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/hellowasm/hellowasm-go/internal/bench"
	"github.com/hellowasm/hellowasm-go/internal/config"
	"github.com/hellowasm/hellowasm-go/internal/metrics"
	"github.com/spf13/cobra"
)

var (
	// bench flags
	benchIndex uint32
	benchLabel string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time one naive Fibonacci computation",
	Long: `Compute fib(35) with naive recursion and print the elapsed time as
"<label>: <ms> ms". Only the computation is timed.

Examples:
  # Native, default label
  hellowasm bench

  # Print the line with a different tag
  hellowasm bench --label rust

  # Time the guest module instead
  hellowasm bench --wasm hellowasm.wasm --label wasm`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("index") {
			settings.Bench.Index = benchIndex
		}
		if cmd.Flags().Changed("label") {
			settings.Bench.Label = benchLabel
		}
		if err := settings.Validate(); err != nil {
			return err
		}

		m := metrics.New()
		if err := runBench(ctx, cmd.OutOrStdout(), settings, m, logger); err != nil {
			return err
		}
		return writeMetrics(m)
	},
}

func init() {
	benchCmd.Flags().Uint32VarP(&benchIndex, "index", "n", bench.DefaultIndex,
		"Fibonacci index to compute")
	benchCmd.Flags().StringVarP(&benchLabel, "label", "l", bench.DefaultLabel,
		"Tag printed before the elapsed time")
	rootCmd.AddCommand(benchCmd)
}

// runBench prints one benchmark line for cfg.Bench.Index.
func runBench(ctx context.Context, out io.Writer, cfg *config.File, m *metrics.Metrics, logger *slog.Logger) error {
	be, cleanup, err := openBackend(ctx, cfg, printAlerter(out), m, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	r, err := bench.RunErr(cfg.Bench.Index, func(n uint32) (uint64, error) {
		return be.Fib(ctx, n)
	})
	if err != nil {
		return fmt.Errorf("fib(%d): %w", cfg.Bench.Index, err)
	}
	r.Observe(m, be.Name())

	if logger != nil {
		logger.Debug("benchmark finished",
			"backend", be.Name(),
			"index", r.Index,
			"value", r.Value,
			"elapsed", r.Elapsed)
	}

	_, err = fmt.Fprintln(out, r.Line(cfg.Bench.Label))
	return err
}
