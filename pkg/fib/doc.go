// Package fib computes Fibonacci numbers.
//
// The package is built around one algorithm: the naive double-recursive
// definition
//
//	F(0) = 0
//	F(1) = 1
//	F(n) = F(n-1) + F(n-2)
//
// implemented once by [Naive] and shared by every integer width. The
// recursion is deliberately left unoptimized: it performs O(φⁿ) calls and
// is used as a CPU benchmark, so it must never be replaced with a cached or
// iterative version.
//
// # Widths
//
// [Fib32] is the 32-bit entry point exported to WebAssembly hosts and
// [Fib64] is the 64-bit entry point used by the benchmark program. Both
// delegate to [Naive].
//
// # Overflow
//
// The naive functions follow Go's unsigned arithmetic and wrap silently
// when a value no longer fits in the result type. Callers that need a
// guarded result use [Checked], which rejects indices above [MaxIndex]:
//
//	v, err := fib.Checked[uint32](50)
//	if errors.Is(err, fib.ErrOverflow) {
//	    // F(50) does not fit in 32 bits
//	}
//
// [Iterative] is a separate linear-time alternative for callers that want
// the value rather than the workload.
package fib
