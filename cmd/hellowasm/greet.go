package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hellowasm/hellowasm-go/internal/metrics"
	"github.com/nxadm/tail"
	"github.com/spf13/cobra"
)

var (
	// greet flags
	followPath string
	fromStart  bool
)

var greetCmd = &cobra.Command{
	Use:   "greet [NAME]",
	Short: "Send a greeting to the alert function",
	Long: `Call greet(NAME). The greeting "Hello, NAME" arrives through the
host's alert function and is printed as "alert: Hello, NAME".

With --follow, every line appended to FILE is greeted until interrupted.

Examples:
  hellowasm greet World
  hellowasm greet --wasm hellowasm.wasm ""
  hellowasm greet --follow names.txt --from-start`,
	Args: func(cmd *cobra.Command, args []string) error {
		if followPath != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		m := metrics.New()
		be, cleanup, err := openBackend(ctx, settings, printAlerter(out), m, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		if followPath != "" {
			err = followNames(ctx, be, followPath, fromStart)
		} else {
			err = be.Greet(ctx, args[0])
		}
		if err != nil {
			return err
		}
		return writeMetrics(m)
	},
}

func init() {
	greetCmd.Flags().StringVarP(&followPath, "follow", "f", "",
		"Greet each line appended to this file")
	greetCmd.Flags().BoolVar(&fromStart, "from-start", false,
		"With --follow, also greet lines already in the file")
	rootCmd.AddCommand(greetCmd)
}

// followNames greets every line of path as it is written, until ctx is done.
func followNames(ctx context.Context, be backend, path string, fromStart bool) error {
	cfg := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	}
	if !fromStart {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to follow %s: %w", path, err)
	}
	defer t.Cleanup()

	for {
		select {
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			name := strings.TrimSuffix(line.Text, "\r")
			if err := be.Greet(ctx, name); err != nil {
				t.Stop()
				return fmt.Errorf("greet line %d: %w", line.Num, err)
			}

		case <-ctx.Done():
			return t.Stop()
		}
	}
}
