// Package wasm runs the hellowasm WebAssembly module outside a browser.
//
// A Host owns a wazero runtime and supplies the guest's only import,
// env.alert, by forwarding to a bridge.Alerter. Modules loaded through a
// Host expose the guest's fib_export and greet functions as Go methods.
package wasm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWasm indicates the bytes are not a valid WebAssembly module.
	ErrInvalidWasm = errors.New("invalid wasm module")

	// ErrMissingExport indicates a required export function is missing.
	ErrMissingExport = errors.New("missing required export")

	// ErrTimeout indicates a guest call exceeded its timeout.
	ErrTimeout = errors.New("wasm call timeout")

	// ErrFileTooLarge indicates the module exceeds MaxWasmFileSize.
	ErrFileTooLarge = errors.New("wasm module too large")

	// ErrInputTooLarge indicates a string argument exceeds MaxNameSize.
	ErrInputTooLarge = errors.New("input too large")

	// ErrModuleClosed is returned by calls on a closed Module.
	ErrModuleClosed = errors.New("module is closed")

	// ErrHostClosed is returned when loading through a closed Host.
	ErrHostClosed = errors.New("host is closed")
)

// ABIError reports a module whose imports or exports do not match what the
// host expects.
type ABIError struct {
	Function string
	Reason   string
	Err      error // optional sentinel, e.g. ErrMissingExport
}

func (e *ABIError) Error() string {
	return fmt.Sprintf("abi error in %s: %s", e.Function, e.Reason)
}

func (e *ABIError) Unwrap() error {
	return e.Err
}

// WasmRuntimeError represents a failure inside wazero or the guest
// (compilation, instantiation, trap).
type WasmRuntimeError struct {
	Operation string
	Err       error
}

func (e *WasmRuntimeError) Error() string {
	return fmt.Sprintf("wasm runtime error during %s: %v", e.Operation, e.Err)
}

func (e *WasmRuntimeError) Unwrap() error {
	return e.Err
}
