//go:build wasip1

// Command hellowasm-guest is the WASI reactor build of the bridge.
//
// Build with:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o hellowasm.wasm ./cmd/hellowasm-guest
//
// The module imports env.alert(ptr, len) and exports fib_export, greet,
// alloc and free. Strings cross the boundary as UTF-8 (ptr, len) pairs in
// linear memory.
package main

import (
	"runtime"
	"unsafe"

	"github.com/hellowasm/hellowasm-go/pkg/bridge"
)

//go:wasmimport env alert
func hostAlert(ptr, size uint32)

// hostAlerter forwards messages to the imported alert function.
type hostAlerter struct{}

func (hostAlerter) Alert(message string) {
	ptr := uintptr(unsafe.Pointer(unsafe.StringData(message)))
	hostAlert(uint32(ptr), uint32(len(message)))
	runtime.KeepAlive(message)
}

var guest, _ = bridge.New(hostAlerter{})

// pinned keeps buffers handed out by alloc reachable until free.
var pinned = map[uint32][]byte{}

//go:wasmexport fib_export
func fibExport(n uint32) uint32 {
	return guest.FibExport(n)
}

//go:wasmexport greet
func greet(ptr, size uint32) {
	var name string
	if size > 0 {
		name = unsafe.String((*byte)(unsafe.Pointer(uintptr(ptr))), size)
	}
	guest.Greet(name)
}

//go:wasmexport alloc
func alloc(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(unsafe.SliceData(buf))))
	pinned[ptr] = buf
	return ptr
}

//go:wasmexport free
func free(ptr, size uint32) {
	delete(pinned, ptr)
}

// main is required by the wasip1 target but is not run in reactor mode.
func main() {}
