package wasm

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hellowasm/hellowasm-go/internal/metrics"
	"github.com/hellowasm/hellowasm-go/pkg/bridge"
	"github.com/tetratelabs/wazero/api"
	"golang.org/x/time/rate"
)

const (
	// MaxAlertSize is the largest alert message forwarded intact (64KB).
	MaxAlertSize = 64 * 1024

	// MaxNameSize is the largest name Greet accepts, so that any accepted
	// greeting fits in MaxAlertSize.
	MaxNameSize = MaxAlertSize - len(bridge.GreetingPrefix)

	// DefaultAlertRate is the default number of alerts per second.
	DefaultAlertRate = 100

	truncatedSuffix = " [truncated]"
)

// hostFunctions implements the functions a guest imports from the host.
type hostFunctions struct {
	alerter     bridge.Alerter
	logger      *slog.Logger
	rateLimiter *rate.Limiter
	metrics     *metrics.Metrics
}

func newHostFunctions(alerter bridge.Alerter, cfg *hostConfig) *hostFunctions {
	return &hostFunctions{
		alerter:     alerter,
		logger:      cfg.logger,
		rateLimiter: rate.NewLimiter(cfg.alertRate, cfg.alertBurst),
		metrics:     cfg.metrics,
	}
}

// alert implements env.alert.
// Signature: (ptr, len) -> ()
func (h *hostFunctions) alert(ctx context.Context, m api.Module, ptr, msgLen uint32) {
	if !h.rateLimiter.Allow() {
		h.metrics.AlertReceived(metrics.AlertDropped)
		if h.logger != nil {
			h.logger.Warn("alert rate limit exceeded, dropping message", "module", m.Name())
		}
		return
	}

	truncated := false
	if msgLen > MaxAlertSize {
		truncated = true
		msgLen = MaxAlertSize
	}

	mem := m.Memory()
	if mem == nil {
		h.metrics.AlertReceived(metrics.AlertInvalid)
		return
	}
	msgBytes, ok := mem.Read(ptr, msgLen)
	if !ok {
		h.metrics.AlertReceived(metrics.AlertInvalid)
		if h.logger != nil {
			h.logger.Warn("alert message out of bounds",
				"module", m.Name(),
				"ptr", ptr,
				"len", msgLen,
				"memory_size", mem.Size())
		}
		return
	}

	h.alerter.Alert(sanitizeAlert(msgBytes, truncated))
	h.metrics.AlertReceived(metrics.AlertDelivered)
}

// sanitizeAlert copies a message out of guest memory, replacing invalid
// UTF-8 and marking truncation.
func sanitizeAlert(raw []byte, truncated bool) string {
	msg := strings.ToValidUTF8(string(raw), "\ufffd")
	if truncated {
		msg += truncatedSuffix
	}
	return msg
}
