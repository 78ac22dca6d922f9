package fib

// Unsigned is the set of integer types the Fibonacci functions accept.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Naive returns the n-th Fibonacci number using naive double recursion.
// Results that do not fit in T wrap around.
func Naive[T Unsigned](n T) T {
	if n <= 1 {
		return n
	}
	return Naive(n-1) + Naive(n-2)
}

// Fib32 is the 32-bit entry point. It is what WebAssembly hosts call.
func Fib32(n uint32) uint32 {
	return Naive(n)
}

// Fib64 computes the n-th Fibonacci number with a 64-bit result.
func Fib64(n uint32) uint64 {
	return Naive(uint64(n))
}

// Iterative returns the same value as Naive in linear time.
// It is not a replacement for Naive, which callers use as a workload.
func Iterative[T Unsigned](n T) T {
	var a, b T = 0, 1
	for i := T(0); i < n; i++ {
		a, b = b, a+b
	}
	return a
}

// MaxIndex returns the largest n for which F(n) fits in T without wrapping.
func MaxIndex[T Unsigned]() uint {
	var a, b T = 0, 1
	n := uint(1)
	for a+b >= b {
		a, b = b, a+b
		n++
	}
	return n
}

// Checked is Naive with an explicit range check. It returns a *RangeError
// wrapping ErrOverflow when F(n) does not fit in T.
func Checked[T Unsigned](n uint) (T, error) {
	if limit := MaxIndex[T](); n > limit {
		return 0, &RangeError{Index: n, Max: limit, Err: ErrOverflow}
	}
	return Naive(T(n)), nil
}

// FromInt converts a signed index, rejecting negative values.
func FromInt(n int) (uint, error) {
	if n < 0 {
		return 0, &RangeError{Signed: n, Err: ErrInvalidInput}
	}
	return uint(n), nil
}
