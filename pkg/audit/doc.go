// Package audit stores the platform's audit log.
//
// Audit records are append-only. The only destructive operation is
// DeleteOlderThan, which the retention cleaner uses to enforce the
// configured retention window with a single bulk delete.
//
// # Backends
//
//   - MemoryStore: process-local, for tests and development.
//   - SQLiteStore: single-file database (github.com/mattn/go-sqlite3) with a
//     versioned schema and an index on created_at so that bulk deletes by
//     age do not scan the table.
//
// Record IDs are random UUIDs (github.com/google/uuid).
package audit
