// Command fibbench times naive recursive fib(35) and prints one line:
//
//	go: 412 ms
//
// It takes no arguments and always exits 0. Set HELLOWASM_LABEL to change
// the leading tag.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/hellowasm/hellowasm-go/internal/bench"
	"github.com/hellowasm/hellowasm-go/internal/config"
	"github.com/hellowasm/hellowasm-go/pkg/fib"
)

// A failed write is reported on stderr only.
func main() {
	if err := run(os.Stdout, os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, "fibbench:", err)
	}
}

func run(out io.Writer, getenv func(string) string) error {
	label := bench.DefaultLabel
	if v := getenv(config.EnvLabel); v != "" {
		label = v
	}

	r := bench.Run(bench.DefaultIndex, fib.Fib64)
	_, err := fmt.Fprintln(out, r.Line(label))
	return err
}
