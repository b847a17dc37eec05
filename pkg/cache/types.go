package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store is a key/value counter store with per-key time-to-live.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the current value of key, or 0 if the key is absent
	// or expired.
	Get(ctx context.Context, key string) (int64, error)

	// Incr atomically increments key by one and sets its TTL to ttl.
	// A missing key starts from zero. Returns the new value.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value int64, ttl time.Duration) error

	// TTL returns the remaining time-to-live of key. It returns 0 when
	// the key is absent or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("cache: store closed")

// Error describes a failed counter-store operation.
type Error struct {
	Backend   string // "memory", "redis"
	Operation string // "get", "incr", "set", "ttl", "ping"
	Key       string
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("cache error [backend=%s, operation=%s, key=%s]: %v", e.Backend, e.Operation, e.Key, e.Cause)
	}
	return fmt.Sprintf("cache error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(backend, op, key string, cause error) *Error {
	return &Error{Backend: backend, Operation: op, Key: key, Cause: cause}
}

// RateKey builds the counter key for a tenant and window name.
func RateKey(tenantID, window string) string {
	return fmt.Sprintf("ratelimit:%s:%s", tenantID, window)
}
