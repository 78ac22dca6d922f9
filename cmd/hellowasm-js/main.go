//go:build js && wasm

// Command hellowasm-js is the browser build of the bridge.
//
// Build with:
//
//	GOOS=js GOARCH=wasm go build -o hellowasm.wasm ./cmd/hellowasm-js
//
// and load it with wasm_exec.js. After startup the page can call
// fib_export(n) and greet(name); greetings are shown with window.alert.
package main

import (
	"syscall/js"

	"github.com/hellowasm/hellowasm-go/pkg/bridge"
)

func main() {
	b, err := bridge.New(bridge.AlertFunc(func(message string) {
		js.Global().Call(bridge.ImportAlert, message)
	}))
	if err != nil {
		panic(err)
	}

	js.Global().Set(bridge.ExportFib, js.FuncOf(func(this js.Value, args []js.Value) any {
		var n uint32
		if len(args) > 0 {
			n = uint32(args[0].Int())
		}
		return b.FibExport(n)
	}))

	js.Global().Set(bridge.ExportGreet, js.FuncOf(func(this js.Value, args []js.Value) any {
		var name string
		if len(args) > 0 {
			name = args[0].String()
		}
		b.Greet(name)
		return nil
	}))

	// Block forever so the exported functions stay callable.
	select {}
}
