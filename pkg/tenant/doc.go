// Package tenant provides persistence for tenant quota rows.
//
// A tenant is the billing entity that owns a per-minute rate limit and a
// monthly request quota. This package only stores and mutates the quota
// columns; tenant lifecycle (creation, tier changes) belongs to the CRUD
// services that sit in front of it.
//
// Backends:
//
//   - Memory: in-process map, ordered by creation time
//   - SQLite: file-based persistence (modernc.org/sqlite, no cgo)
//   - PostgreSQL: shared persistence through a pgx connection pool
//
// All backends list tenants in creation order so that batch jobs process
// them deterministically.
package tenant
