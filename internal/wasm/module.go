package wasm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hellowasm/hellowasm-go/internal/metrics"
	"github.com/hellowasm/hellowasm-go/pkg/bridge"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// DefaultTimeout bounds a single guest call. fib_export is exponential, so
// this is generous.
const DefaultTimeout = 10 * time.Second

// Module is a validated guest module.
// It is goroutine-safe: each call runs in a fresh instance.
type Module struct {
	host     *Host
	compiled wazero.CompiledModule
	digest   string
	hasFree  bool
	timeout  atomic.Int64 // nanoseconds
	closed   atomic.Bool
}

// Digest returns the hex SHA-256 of the module bytes.
func (m *Module) Digest() string {
	return m.digest
}

// SetTimeout sets the per-call timeout. This method is goroutine-safe.
func (m *Module) SetTimeout(timeout time.Duration) {
	m.timeout.Store(int64(timeout))
}

// Fib calls the guest's fib_export.
func (m *Module) Fib(ctx context.Context, n uint32) (uint32, error) {
	var out uint32
	err := m.call(ctx, bridge.ExportFib, func(ctx context.Context, inst api.Module) error {
		results, err := inst.ExportedFunction(bridge.ExportFib).Call(ctx, api.EncodeU32(n))
		if err != nil {
			return err
		}
		out = api.DecodeU32(results[0])
		return nil
	})
	return out, err
}

// Greet calls the guest's greet with name. The guest answers through
// env.alert, which reaches the Host's Alerter before Greet returns.
func (m *Module) Greet(ctx context.Context, name string) error {
	if len(name) > MaxNameSize {
		return fmt.Errorf("%w: name is %d bytes (max %d)", ErrInputTooLarge, len(name), MaxNameSize)
	}

	return m.call(ctx, bridge.ExportGreet, func(ctx context.Context, inst api.Module) error {
		size := uint32(len(name))
		var ptr uint32

		// Empty names are passed as (0, 0) without allocating.
		if size > 0 {
			results, err := inst.ExportedFunction(bridge.ExportAlloc).Call(ctx, api.EncodeU32(size))
			if err != nil {
				return fmt.Errorf("alloc: %w", err)
			}
			ptr = api.DecodeU32(results[0])
			if !inst.Memory().Write(ptr, []byte(name)) {
				return fmt.Errorf("alloc returned 0x%x, which cannot hold %d bytes", ptr, size)
			}
		}

		if _, err := inst.ExportedFunction(bridge.ExportGreet).Call(ctx, api.EncodeU32(ptr), api.EncodeU32(size)); err != nil {
			return err
		}

		if size > 0 && m.hasFree {
			// The instance is discarded anyway; free only matters to guests
			// that check for leaks.
			_, _ = inst.ExportedFunction(bridge.ExportFree).Call(ctx, api.EncodeU32(ptr), api.EncodeU32(size))
		}
		return nil
	})
}

// Close marks the module closed. Compiled code is owned by the Host.
// Safe to call multiple times.
func (m *Module) Close() error {
	m.closed.Store(true)
	return nil
}

// call instantiates the module, runs fn and maps the outcome to the
// package's errors.
func (m *Module) call(ctx context.Context, export string, fn func(context.Context, api.Module) error) error {
	if m.closed.Load() {
		return ErrModuleClosed
	}

	h := m.host
	h.mu.Lock()
	rt := h.runtime
	h.mu.Unlock()
	if rt == nil {
		return ErrHostClosed
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(m.timeout.Load()))
	defer cancel()

	name := fmt.Sprintf("hellowasm-%d", h.instanceCount.Add(1))
	modConfig := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions("_initialize")

	inst, err := rt.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return m.finish(ctx, export, &WasmRuntimeError{Operation: "module instantiation", Err: err})
	}
	defer inst.Close(context.Background())

	if err := fn(ctx, inst); err != nil {
		return m.finish(ctx, export, &WasmRuntimeError{Operation: export + " call", Err: err})
	}
	return m.finish(ctx, export, nil)
}

// finish records the call and converts context failures.
func (m *Module) finish(ctx context.Context, export string, err error) error {
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				status = metrics.StatusTimeout
				err = ErrTimeout
			} else {
				err = ctxErr
			}
		}
	}
	m.host.metrics.ExportCalled(export, status)

	if err != nil && m.host.logger != nil {
		m.host.logger.Debug("wasm call failed", "export", export, "error", err)
	}
	return err
}
