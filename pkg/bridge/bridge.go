// Package bridge is the boundary between this module and the environment
// that hosts it.
//
// A host supplies one capability, an [Alerter], and receives two functions:
// fib_export and greet. The same Bridge backs the WebAssembly guests under
// cmd/ and the native CLI, so the greeting format and the Fibonacci
// semantics cannot drift between them.
package bridge

import (
	"errors"

	"github.com/hellowasm/hellowasm-go/pkg/fib"
)

// Names of the functions that cross the module boundary.
const (
	// ImportModule is the wasm module name the guest imports alert from.
	ImportModule = "env"

	// ImportAlert is the host function that displays a message.
	ImportAlert = "alert"

	// ExportFib is fib_export(u32) -> u32.
	ExportFib = "fib_export"

	// ExportGreet is greet(ptr, len u32).
	ExportGreet = "greet"

	// ExportAlloc is alloc(size u32) -> ptr. Hosts use it to place strings
	// in guest memory before calling greet.
	ExportAlloc = "alloc"

	// ExportFree is free(ptr, size u32). Optional.
	ExportFree = "free"
)

// GreetingPrefix is prepended to every name passed to Greet.
const GreetingPrefix = "Hello, "

// ErrNoAlerter is returned by New when the host did not supply an alert function.
var ErrNoAlerter = errors.New("bridge: no alerter supplied by host")

// Alerter displays a message to the user. It is implemented by the host
// (window.alert in a browser, a writer or logger elsewhere).
type Alerter interface {
	Alert(message string)
}

// AlertFunc adapts an ordinary function to the Alerter interface.
type AlertFunc func(message string)

// Alert calls f(message).
func (f AlertFunc) Alert(message string) {
	f(message)
}

// Greeting returns the message Greet sends for name. The name is embedded
// verbatim.
func Greeting(name string) string {
	return GreetingPrefix + name
}

// Bridge implements the exported functions on top of a host Alerter.
type Bridge struct {
	alerter Alerter
}

// New returns a Bridge that forwards greetings to a.
func New(a Alerter) (*Bridge, error) {
	if a == nil {
		return nil, ErrNoAlerter
	}
	return &Bridge{alerter: a}, nil
}

// Greet sends Greeting(name) to the host's Alerter exactly once.
func (b *Bridge) Greet(name string) {
	b.alerter.Alert(Greeting(name))
}

// FibExport is fib.Fib32 exposed under its export name.
func (b *Bridge) FibExport(n uint32) uint32 {
	return fib.Fib32(n)
}
