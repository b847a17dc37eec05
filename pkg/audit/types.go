package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is a single audit log entry.
type Record struct {
	// ID is a unique identifier (UUID v4).
	ID string `json:"id"`

	// TenantID is the tenant the action was performed for.
	TenantID string `json:"tenant_id"`

	// Action names what happened (e.g. "quota.rejected", "usage.reset").
	Action string `json:"action"`

	// Resource identifies the affected object.
	Resource string `json:"resource,omitempty"`

	// Details carries free-form context.
	Details string `json:"details,omitempty"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord creates a record with a fresh ID and the current time.
func NewRecord(tenantID, action, resource, details string) *Record {
	return &Record{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Action:    action,
		Resource:  resource,
		Details:   details,
		CreatedAt: time.Now(),
	}
}

// Store persists audit records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Insert appends a record. Missing IDs and timestamps are filled in.
	Insert(ctx context.Context, record *Record) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// DeleteOlderThan removes every record created strictly before cutoff
	// and returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}

// StorageError represents an error from an audit storage backend.
type StorageError struct {
	Backend   string // "memory", "sqlite"
	Operation string // "insert", "count", "delete_older_than", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
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

// prepare fills in defaults on a record before it is stored.
func prepare(record *Record) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if record.Action == "" {
		return fmt.Errorf("record action cannot be empty")
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	return nil
}
