package wasm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hellowasm/hellowasm-go/internal/metrics"
	"github.com/hellowasm/hellowasm-go/pkg/fib"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a goroutine-safe Alerter that remembers every message.
type recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *recorder) Alert(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func loadGuest(t *testing.T, h *Host, tm testModule) *Module {
	t.Helper()
	m, err := h.LoadBytes(context.Background(), tm.bytes())
	require.NoError(t, err)
	return m
}

func TestModule_Fib(t *testing.T) {
	h := newTestHost(t, &recorder{})
	m := loadGuest(t, h, guestModule())
	ctx := context.Background()

	for n := uint32(0); n <= 24; n++ {
		got, err := m.Fib(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, fib.Fib32(n), got, "fib_export(%d)", n)
	}

	got, err := m.Fib(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(55), got)
}

func TestModule_Greet(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"World", "Hello, World"},
		{"", "Hello, "},
		{"世界", "Hello, 世界"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			rec := &recorder{}
			h := newTestHost(t, rec)
			m := loadGuest(t, h, guestModule())

			require.NoError(t, m.Greet(context.Background(), tt.name))
			assert.Equal(t, []string{tt.want}, rec.all())
		})
	}
}

func TestModule_GreetTooLarge(t *testing.T) {
	rec := &recorder{}
	h := newTestHost(t, rec)
	m := loadGuest(t, h, guestModule())

	err := m.Greet(context.Background(), strings.Repeat("a", MaxNameSize+1))
	assert.ErrorIs(t, err, ErrInputTooLarge)
	assert.Empty(t, rec.all())
}

func TestModule_Concurrent(t *testing.T) {
	rec := &recorder{}
	h := newTestHost(t, rec, WithAlertRateLimit(0, 0))
	m := loadGuest(t, h, guestModule())
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := m.Fib(ctx, 15); err != nil || v != 610 {
				errs <- errors.Join(err, errors.New("bad fib result"))
				return
			}
			if err := m.Greet(ctx, "World"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Len(t, rec.all(), 16)
}

func TestModule_Timeout(t *testing.T) {
	h := newTestHost(t, &recorder{})
	tm := guestModule()
	tm.funcs[0].code = spinCode()
	m := loadGuest(t, h, tm)
	m.SetTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := m.Fib(context.Background(), 1)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestModule_Cancelled(t *testing.T) {
	h := newTestHost(t, &recorder{})
	tm := guestModule()
	tm.funcs[0].code = spinCode()
	m := loadGuest(t, h, tm)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := m.Fib(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModule_Trap(t *testing.T) {
	h := newTestHost(t, &recorder{})
	tm := guestModule()
	tm.funcs[0].code = []byte{opUnreachable}
	m := loadGuest(t, h, tm)

	_, err := m.Fib(context.Background(), 3)
	require.Error(t, err)

	var rtErr *WasmRuntimeError
	require.True(t, errors.As(err, &rtErr))
	assert.Equal(t, "fib_export call", rtErr.Operation)

	// A trap only kills its own instance.
	_, err = m.Fib(context.Background(), 3)
	assert.Error(t, err)
}

func TestModule_Closed(t *testing.T) {
	h := newTestHost(t, &recorder{})
	m := loadGuest(t, h, guestModule())

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err := m.Fib(context.Background(), 1)
	assert.ErrorIs(t, err, ErrModuleClosed)
	assert.ErrorIs(t, m.Greet(context.Background(), "x"), ErrModuleClosed)
}

func TestModule_Metrics(t *testing.T) {
	mt := metrics.New()
	h := newTestHost(t, &recorder{}, WithMetrics(mt))
	m := loadGuest(t, h, guestModule())
	ctx := context.Background()

	_, err := m.Fib(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, m.Greet(ctx, "World"))

	assert.Equal(t, 1.0, testutil.ToFloat64(mt.ExportCalls.WithLabelValues("fib_export", metrics.StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.ExportCalls.WithLabelValues("greet", metrics.StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.Alerts.WithLabelValues(metrics.AlertDelivered)))
}
