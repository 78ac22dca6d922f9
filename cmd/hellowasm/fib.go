package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/hellowasm/hellowasm-go/internal/metrics"
	"github.com/hellowasm/hellowasm-go/pkg/fib"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	// fib flags
	fibJobs    int
	fibChecked bool
)

var fibCmd = &cobra.Command{
	Use:   "fib N...",
	Short: "Print Fibonacci numbers",
	Long: `Print fib(N) for each index, in argument order. Indices are computed
concurrently with up to --jobs workers.

Native results are 64-bit; guest results are 32-bit and wrap above
fib(47). Use --checked to fail instead of wrapping.

Examples:
  hellowasm fib 10 20 30
  hellowasm fib --wasm hellowasm.wasm --checked 47 48`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		indices, err := parseIndices(args)
		if err != nil {
			return err
		}

		m := metrics.New()
		be, cleanup, err := openBackend(ctx, settings, printAlerter(cmd.OutOrStdout()), m, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := runFib(ctx, cmd.OutOrStdout(), be, indices, fibJobs, fibChecked); err != nil {
			return err
		}
		return writeMetrics(m)
	},
}

func init() {
	fibCmd.Flags().IntVarP(&fibJobs, "jobs", "j", 4, "Maximum concurrent computations")
	fibCmd.Flags().BoolVar(&fibChecked, "checked", false,
		"Fail instead of wrapping when a result overflows")
	rootCmd.AddCommand(fibCmd)
}

func parseIndices(args []string) ([]uint32, error) {
	indices := make([]uint32, len(args))
	for i, arg := range args {
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid index %q: %w", arg, fib.ErrInvalidInput)
		}
		u, err := fib.FromInt(int(n))
		if err != nil {
			return nil, err
		}
		if u > math.MaxUint32 {
			return nil, fmt.Errorf("invalid index %q: out of range", arg)
		}
		indices[i] = uint32(u)
	}
	return indices, nil
}

// runFib computes every index on be and prints the results in input order.
func runFib(ctx context.Context, out io.Writer, be backend, indices []uint32, jobs int, checked bool) error {
	if jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1, got %d", jobs)
	}

	if checked {
		limit := be.MaxIndex()
		for _, n := range indices {
			if uint(n) > limit {
				return fmt.Errorf("fib(%d): %w", n, &fib.RangeError{Index: uint(n), Max: limit, Err: fib.ErrOverflow})
			}
		}
	}

	results := make([]uint64, len(indices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, n := range indices {
		g.Go(func() error {
			v, err := be.Fib(gctx, n)
			if err != nil {
				return fmt.Errorf("fib(%d): %w", n, err)
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, n := range indices {
		if _, err := fmt.Fprintf(out, "fib(%d) = %d\n", n, results[i]); err != nil {
			return err
		}
	}
	return nil
}
