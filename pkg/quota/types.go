package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/tollgate/pkg/audit"
)

// Sentinel errors for rejected requests.
var (
	// ErrRateLimitExceeded is returned when the per-minute limit is reached.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrQuotaExceeded is returned when the monthly quota is used up.
	ErrQuotaExceeded = errors.New("monthly quota exceeded")
)

// Decision is the outcome of a quota check.
type Decision struct {
	// Admitted reports whether the request may proceed.
	Admitted bool `json:"admitted"`

	// Remaining is the number of requests left in the window, never negative.
	Remaining int64 `json:"remaining"`

	// Limit is the limit the request was checked against.
	Limit int64 `json:"limit"`
}

// LimitError describes a rejected request. It wraps ErrRateLimitExceeded or
// ErrQuotaExceeded.
type LimitError struct {
	TenantID string
	Limit    int64
	Err      error
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	return fmt.Sprintf("tenant %s: %v (limit=%d)", e.TenantID, e.Err, e.Limit)
}

// Unwrap returns the sentinel error.
func (e *LimitError) Unwrap() error {
	return e.Err
}

// UsageRecorder persists monthly usage increments. tenant.Store satisfies it.
type UsageRecorder interface {
	IncrementMonthlyUsage(ctx context.Context, tenantID string) error
}

// Config configures an Enforcer.
type Config struct {
	// Window is the rate counter TTL.
	// Default: 60 seconds
	Window time.Duration

	// UsageTimeout bounds each asynchronous usage increment.
	// Default: 5 seconds
	UsageTimeout time.Duration

	// Audit, if set, receives a record for every rejected request.
	Audit audit.Store

	// Registerer receives the enforcer's metrics. Nil leaves the
	// collectors unregistered.
	Registerer prometheus.Registerer
}

func (c *Config) applyDefaults() {
	if c.Window <= 0 {
		c.Window = 60 * time.Second
	}
	if c.UsageTimeout <= 0 {
		c.UsageTimeout = 5 * time.Second
	}
}
