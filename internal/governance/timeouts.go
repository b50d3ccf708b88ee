// Package governance enforces the upstream call policy: bounded timeouts and
// a strict single-attempt rule. Upstream operations are not guaranteed to be
// idempotent (issue creation and transition execution are not), so a failed
// attempt is surfaced immediately instead of retried.
package governance

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrRequestTimeout is returned when an upstream call exceeds its timeout.
var ErrRequestTimeout = errors.New("request timeout exceeded")

// IdempotentMethods lists HTTP methods whose upstream operations could be
// repeated safely. Kept for diagnostics; the single-attempt policy applies
// to all methods regardless.
var IdempotentMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// IsIdempotent returns true if the HTTP method is repeatable without side
// effects.
func IsIdempotent(method string) bool {
	return IdempotentMethods[method]
}

// TimeoutConfig defines timeout behavior for upstream requests.
type TimeoutConfig struct {
	// RequestTimeout is the maximum duration for a complete upstream call.
	RequestTimeout time.Duration
}

// DefaultTimeoutConfig returns the default upstream timeout.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		RequestTimeout: 30 * time.Second,
	}
}

// TimeoutManager enforces the timeout policy on upstream requests.
type TimeoutManager struct {
	config TimeoutConfig
}

// NewTimeoutManager creates a timeout manager with the given configuration.
func NewTimeoutManager(config TimeoutConfig) *TimeoutManager {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultTimeoutConfig().RequestTimeout
	}
	return &TimeoutManager{config: config}
}

// Config returns a copy of the current timeout configuration.
func (tm *TimeoutManager) Config() TimeoutConfig {
	return tm.config
}

// WithRequestTimeout derives a context bounded by the request timeout. The
// caller must invoke the cancel function; cancellation aborts the underlying
// network call rather than leaving it running in the background.
func (tm *TimeoutManager) WithRequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, tm.config.RequestTimeout)
}

// IsTimeout reports whether an upstream failure was caused by the deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrRequestTimeout)
}
