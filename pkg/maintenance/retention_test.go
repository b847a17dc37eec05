package maintenance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/tollgate/pkg/audit"
	"mercator-hq/tollgate/pkg/notify"
)

// countingAuditStore counts bulk deletes and can fail them.
type countingAuditStore struct {
	*audit.MemoryStore
	deletes atomic.Int64
	err     error
}

func (s *countingAuditStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.deletes.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return s.MemoryStore.DeleteOlderThan(ctx, cutoff)
}

var fixedNow = time.Date(2025, 6, 15, 2, 0, 0, 0, time.UTC)

func newTestCleaner(t *testing.T, store audit.Store, cfg RetentionConfig, notifier Notifier) *Cleaner {
	t.Helper()
	c, err := NewCleaner(store, cfg, notifier, nil)
	if err != nil {
		t.Fatalf("NewCleaner failed: %v", err)
	}
	c.now = func() time.Time { return fixedNow }
	return c
}

func insertAged(t *testing.T, store audit.Store, n int, age time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		r := audit.NewRecord("acme", "quota.rate_exceeded", "quota", "")
		r.CreatedAt = fixedNow.Add(-age)
		if err := store.Insert(context.Background(), r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestCleanupOldLogs_DeletesOlderThanCutoff(t *testing.T) {
	store := audit.NewMemoryStore()
	insertAged(t, store, 10, 200*24*time.Hour)
	insertAged(t, store, 5, 10*24*time.Hour)

	c := newTestCleaner(t, store, RetentionConfig{RetentionDays: 180, CleanupEnabled: true, CleanupHour: 2}, nil)

	result, err := c.CleanupOldLogs(context.Background())
	if err != nil {
		t.Fatalf("CleanupOldLogs failed: %v", err)
	}
	if result.DeletedRecords != 10 {
		t.Errorf("Expected 10 deleted records, got %d", result.DeletedRecords)
	}
	wantCutoff := fixedNow.AddDate(0, 0, -180)
	if !result.CutoffDate.Equal(wantCutoff) {
		t.Errorf("CutoffDate = %v, want %v", result.CutoffDate, wantCutoff)
	}

	if n, _ := store.Count(context.Background()); n != 5 {
		t.Errorf("Expected 5 remaining records, got %d", n)
	}

	cfg := c.RetentionConfig()
	if cfg.LastCleanup == nil || !cfg.LastCleanup.Equal(fixedNow) {
		t.Errorf("Expected LastCleanup to be recorded, got %v", cfg.LastCleanup)
	}
	if cfg.LastDeletedCount == nil || *cfg.LastDeletedCount != 10 {
		t.Errorf("Expected LastDeletedCount 10, got %v", cfg.LastDeletedCount)
	}
}

func TestCleanupOldLogs_RecordAtCutoffKept(t *testing.T) {
	store := audit.NewMemoryStore()
	r := audit.NewRecord("acme", "quota.rate_exceeded", "quota", "")
	r.CreatedAt = fixedNow.AddDate(0, 0, -90)
	store.Insert(context.Background(), r)

	c := newTestCleaner(t, store, DefaultRetentionConfig(), nil)

	result, err := c.CleanupOldLogs(context.Background())
	if err != nil {
		t.Fatalf("CleanupOldLogs failed: %v", err)
	}
	if result.DeletedRecords != 0 {
		t.Errorf("Record at the cutoff must be kept, deleted %d", result.DeletedRecords)
	}
}

func TestCleanupOldLogs_Disabled(t *testing.T) {
	store := &countingAuditStore{MemoryStore: audit.NewMemoryStore()}
	insertAged(t, store, 3, 365*24*time.Hour)

	c := newTestCleaner(t, store, RetentionConfig{RetentionDays: 30, CleanupEnabled: false, CleanupHour: 2}, nil)

	result, err := c.CleanupOldLogs(context.Background())
	if err != nil {
		t.Fatalf("CleanupOldLogs failed: %v", err)
	}
	if result.DeletedRecords != 0 {
		t.Errorf("Expected no deletions, got %d", result.DeletedRecords)
	}
	if !result.CutoffDate.Equal(fixedNow) {
		t.Errorf("Expected cutoff to be now when disabled, got %v", result.CutoffDate)
	}
	if store.deletes.Load() != 0 {
		t.Errorf("Disabled cleanup touched storage %d times", store.deletes.Load())
	}
}

func TestCleanupOldLogs_DisabledMidOperation(t *testing.T) {
	store := &countingAuditStore{MemoryStore: audit.NewMemoryStore()}
	insertAged(t, store, 4, 400*24*time.Hour)

	c := newTestCleaner(t, store, DefaultRetentionConfig(), nil)

	if _, err := c.UpdateRetentionConfig(RetentionUpdate{CleanupEnabled: boolPtr(false)}); err != nil {
		t.Fatalf("UpdateRetentionConfig failed: %v", err)
	}

	result, _ := c.CleanupOldLogs(context.Background())
	if result.DeletedRecords != 0 || store.deletes.Load() != 0 {
		t.Errorf("Expected next run to skip, deleted=%d calls=%d", result.DeletedRecords, store.deletes.Load())
	}
	if n, _ := store.Count(context.Background()); n != 4 {
		t.Errorf("Expected records to survive, got %d", n)
	}
}

func TestCleanupOldLogs_StorageError(t *testing.T) {
	store := &countingAuditStore{MemoryStore: audit.NewMemoryStore(), err: errStorage}
	c := newTestCleaner(t, store, DefaultRetentionConfig(), nil)

	_, err := c.CleanupOldLogs(context.Background())
	if !errors.Is(err, errStorage) {
		t.Fatalf("Expected storage error, got %v", err)
	}
	if c.RetentionConfig().LastCleanup != nil {
		t.Error("Failed cleanup must not record LastCleanup")
	}
}

func TestCleanupAndReport(t *testing.T) {
	tests := []struct {
		name        string
		storeErr    error
		wantSuccess bool
	}{
		{"success", nil, true},
		{"failure", errStorage, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &countingAuditStore{MemoryStore: audit.NewMemoryStore(), err: tt.storeErr}
			notifier := &recordingNotifier{}
			c := newTestCleaner(t, store, DefaultRetentionConfig(), notifier)

			c.CleanupAndReport(context.Background())

			notes := notifier.all()
			if len(notes) != 1 {
				t.Fatalf("Expected one notification, got %d", len(notes))
			}
			if notes[0].JobType != notify.JobAuditCleanup {
				t.Errorf("JobType = %s", notes[0].JobType)
			}
			if notes[0].Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", notes[0].Success, tt.wantSuccess)
			}
		})
	}
}

func TestUpdateRetentionConfig(t *testing.T) {
	tests := []struct {
		name      string
		update    RetentionUpdate
		wantErr   bool
		wantField string
		wantDays  int
		wantHour  int
	}{
		{"valid days", RetentionUpdate{RetentionDays: intPtr(180)}, false, "", 180, 2},
		{"days below range", RetentionUpdate{RetentionDays: intPtr(10)}, true, "retention_days", 90, 2},
		{"days above range", RetentionUpdate{RetentionDays: intPtr(1000)}, true, "retention_days", 90, 2},
		{"min days", RetentionUpdate{RetentionDays: intPtr(30)}, false, "", 30, 2},
		{"max days", RetentionUpdate{RetentionDays: intPtr(730)}, false, "", 730, 2},
		{"valid hour", RetentionUpdate{CleanupHour: intPtr(23)}, false, "", 90, 23},
		{"negative hour", RetentionUpdate{CleanupHour: intPtr(-1)}, true, "cleanup_hour", 90, 2},
		{"hour too large", RetentionUpdate{CleanupHour: intPtr(24)}, true, "cleanup_hour", 90, 2},
		{"one invalid field rejects all", RetentionUpdate{RetentionDays: intPtr(60), CleanupHour: intPtr(30)}, true, "cleanup_hour", 90, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCleaner(t, audit.NewMemoryStore(), DefaultRetentionConfig(), nil)

			_, err := c.UpdateRetentionConfig(tt.update)
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Expected *ValidationError, got %v", err)
				}
				if verr.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
				}
				if !errors.Is(err, ErrValidation) {
					t.Error("Expected error to match ErrValidation")
				}
			} else if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			cfg := c.RetentionConfig()
			if cfg.RetentionDays != tt.wantDays || cfg.CleanupHour != tt.wantHour {
				t.Errorf("Config = {days=%d hour=%d}, want {days=%d hour=%d}",
					cfg.RetentionDays, cfg.CleanupHour, tt.wantDays, tt.wantHour)
			}
		})
	}
}

func TestNewCleaner_InvalidConfig(t *testing.T) {
	_, err := NewCleaner(audit.NewMemoryStore(), RetentionConfig{RetentionDays: 5}, nil, nil)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestRetentionConfig_Snapshot(t *testing.T) {
	store := audit.NewMemoryStore()
	insertAged(t, store, 1, 100*24*time.Hour)
	c := newTestCleaner(t, store, DefaultRetentionConfig(), nil)
	c.CleanupOldLogs(context.Background())

	snap := c.RetentionConfig()
	snap.RetentionDays = 400
	*snap.LastDeletedCount = 99

	again := c.RetentionConfig()
	if again.RetentionDays != 90 || *again.LastDeletedCount != 1 {
		t.Errorf("Cleaner state changed through snapshot: %+v", again)
	}
}
