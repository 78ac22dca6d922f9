// Package bench times a single Fibonacci computation.
package bench

import (
	"fmt"
	"time"

	"github.com/hellowasm/hellowasm-go/internal/metrics"
)

const (
	// DefaultIndex is the Fibonacci index the benchmark program computes.
	DefaultIndex = 35

	// DefaultLabel tags the benchmark line.
	DefaultLabel = "go"
)

// Result is the outcome of one timed computation.
type Result struct {
	Index   uint32
	Value   uint64
	Elapsed time.Duration
}

// Run calls fn(n) once and measures only that call.
func Run(n uint32, fn func(uint32) uint64) Result {
	start := time.Now()
	v := fn(n)
	elapsed := time.Since(start)
	return Result{Index: n, Value: v, Elapsed: elapsed}
}

// RunErr is Run for computations that can fail, such as guest calls.
func RunErr(n uint32, fn func(uint32) (uint64, error)) (Result, error) {
	start := time.Now()
	v, err := fn(n)
	elapsed := time.Since(start)
	if err != nil {
		return Result{}, err
	}
	return Result{Index: n, Value: v, Elapsed: elapsed}, nil
}

// Line renders the benchmark output line: "<label>: <whole ms> ms".
func (r Result) Line(label string) string {
	return fmt.Sprintf("%s: %d ms", label, r.Elapsed.Milliseconds())
}

// Observe records the duration under impl.
func (r Result) Observe(m *metrics.Metrics, impl string) {
	m.ObserveFib(impl, r.Elapsed)
}
