package fib

import (
	"errors"
	"fmt"
)

var (
	// ErrOverflow indicates that F(n) does not fit in the requested width.
	ErrOverflow = errors.New("fibonacci value overflows result type")

	// ErrInvalidInput indicates a negative index.
	ErrInvalidInput = errors.New("invalid input")
)

// RangeError describes an index that Checked or FromInt rejected.
type RangeError struct {
	Index  uint
	Max    uint // largest accepted index (overflow only)
	Signed int  // original value (invalid input only)
	Err    error
}

func (e *RangeError) Error() string {
	if errors.Is(e.Err, ErrInvalidInput) {
		return fmt.Sprintf("%v: index must be non-negative, got %d", e.Err, e.Signed)
	}
	return fmt.Sprintf("%v: index %d exceeds maximum %d", e.Err, e.Index, e.Max)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}
