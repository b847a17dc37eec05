package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(&SQLiteConfig{
		Path:    filepath.Join(t.TempDir(), "audit.db"),
		WALMode: true,
	})
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newTestSQLiteStore(t),
	}
}

func TestStore_InsertAndCount(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				if err := store.Insert(ctx, NewRecord("acme", "quota.rejected", "minute", "")); err != nil {
					t.Fatalf("Insert failed: %v", err)
				}
			}

			n, err := store.Count(ctx)
			if err != nil {
				t.Fatalf("Count failed: %v", err)
			}
			if n != 3 {
				t.Errorf("Expected 3 records, got %d", n)
			}
		})
	}
}

func TestStore_InsertFillsDefaults(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			r := &Record{TenantID: "acme", Action: "usage.reset"}
			if err := store.Insert(context.Background(), r); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			if _, err := uuid.Parse(r.ID); err != nil {
				t.Errorf("Expected generated UUID, got %q", r.ID)
			}
			if r.CreatedAt.IsZero() {
				t.Error("Expected CreatedAt to be set")
			}
		})
	}
}

func TestStore_InsertValidation(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Insert(ctx, nil); err == nil {
				t.Error("Expected error for nil record")
			}
			if err := store.Insert(ctx, &Record{TenantID: "acme"}); err == nil {
				t.Error("Expected error for empty action")
			}
		})
	}
}

func TestStore_DuplicateID(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := NewRecord("acme", "usage.reset", "", "")
			if err := store.Insert(ctx, r); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}

			dup := *r
			err := store.Insert(ctx, &dup)
			var storageErr *StorageError
			if !errors.As(err, &storageErr) {
				t.Errorf("Expected *StorageError for duplicate id, got %v", err)
			}
		})
	}
}

func TestStore_DeleteOlderThan(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		ages        []time.Duration
		cutoff      time.Time
		wantDeleted int64
		wantLeft    int64
	}{
		{
			name:        "mixed ages",
			ages:        []time.Duration{100 * 24 * time.Hour, 95 * 24 * time.Hour, 10 * 24 * time.Hour},
			cutoff:      now.AddDate(0, 0, -90),
			wantDeleted: 2,
			wantLeft:    1,
		},
		{
			name:        "nothing old enough",
			ages:        []time.Duration{time.Hour, 24 * time.Hour},
			cutoff:      now.AddDate(0, 0, -30),
			wantDeleted: 0,
			wantLeft:    2,
		},
		{
			name:        "record exactly at cutoff is kept",
			ages:        []time.Duration{30 * 24 * time.Hour},
			cutoff:      now.AddDate(0, 0, -30),
			wantDeleted: 0,
			wantLeft:    1,
		},
		{
			name:        "empty store",
			cutoff:      now,
			wantDeleted: 0,
			wantLeft:    0,
		},
	}

	for _, tt := range tests {
		for name, store := range backends(t) {
			t.Run(tt.name+"/"+name, func(t *testing.T) {
				ctx := context.Background()
				for _, age := range tt.ages {
					r := NewRecord("acme", "quota.rejected", "", "")
					r.CreatedAt = now.Add(-age)
					if err := store.Insert(ctx, r); err != nil {
						t.Fatalf("Insert failed: %v", err)
					}
				}

				deleted, err := store.DeleteOlderThan(ctx, tt.cutoff)
				if err != nil {
					t.Fatalf("DeleteOlderThan failed: %v", err)
				}
				if deleted != tt.wantDeleted {
					t.Errorf("Expected %d deleted, got %d", tt.wantDeleted, deleted)
				}

				left, _ := store.Count(ctx)
				if left != tt.wantLeft {
					t.Errorf("Expected %d remaining, got %d", tt.wantLeft, left)
				}
			})
		}
	}
}

func TestSQLiteStore_ClosedDatabase(t *testing.T) {
	store := newTestSQLiteStore(t)
	store.Close()

	_, err := store.DeleteOlderThan(context.Background(), time.Now())
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Expected *StorageError, got %v", err)
	}
	if storageErr.Operation != "delete_older_than" {
		t.Errorf("Expected operation delete_older_than, got %s", storageErr.Operation)
	}
}

func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteStore(&SQLiteConfig{}); err == nil {
		t.Error("Expected error for empty path")
	}
}
