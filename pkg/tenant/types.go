package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Tenant is a billing/quota entity with its own rate and usage limits.
type Tenant struct {
	// ID uniquely identifies the tenant.
	ID string `json:"id"`

	// Tier is the name of the plan that defined the limits below.
	Tier string `json:"tier"`

	// MonthlyUsage is the number of requests counted this month.
	// It is eventually consistent with the true request count.
	MonthlyUsage int64 `json:"monthly_usage"`

	// MonthlyLimit is the maximum number of requests per month.
	MonthlyLimit int64 `json:"monthly_limit"`

	// PerMinuteLimit is the maximum number of requests per minute.
	PerMinuteLimit int64 `json:"per_minute_limit"`

	// IsActive marks tenants that are served and reset each month.
	IsActive bool `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists tenant quota rows.
// Implementations must be safe for concurrent use.
type Store interface {
	// ListActive returns at most limit active tenants in creation order.
	ListActive(ctx context.Context, limit int) ([]*Tenant, error)

	// Get returns the tenant with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Tenant, error)

	// Upsert creates or replaces a tenant row.
	Upsert(ctx context.Context, t *Tenant) error

	// ResetMonthlyUsage sets the tenant's monthly usage to zero.
	// Resetting an already reset tenant is a no-op.
	ResetMonthlyUsage(ctx context.Context, id string) error

	// IncrementMonthlyUsage adds one to the tenant's monthly usage.
	IncrementMonthlyUsage(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

// ErrNotFound is returned when a tenant does not exist.
var ErrNotFound = errors.New("tenant not found")

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // "memory", "sqlite", "postgres"
	Operation string // "list_active", "get", "reset", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("tenant storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

func validate(t *Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant cannot be nil")
	}
	if t.ID == "" {
		return fmt.Errorf("tenant id cannot be empty")
	}
	if t.MonthlyLimit < 0 || t.PerMinuteLimit < 0 {
		return fmt.Errorf("tenant %s: limits must be non-negative", t.ID)
	}
	return nil
}
