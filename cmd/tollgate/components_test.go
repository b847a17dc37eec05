package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/tollgate/pkg/config"
	"mercator-hq/tollgate/pkg/maintenance"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

// newTestApp builds an app on in-memory backends.
func newTestApp(t *testing.T) *app {
	t.Helper()

	cfg := config.Default()
	cfg.Storage.Tenants.Backend = "memory"
	cfg.Storage.Audit.Backend = "memory"
	cfg.Cache.Backend = "memory"
	cfg.Scheduler.Timezone = "UTC"

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	t.Cleanup(func() {
		a.scheduler.Shutdown(context.Background())
		a.Close()
	})
	return a
}

func TestRetentionFromConfig(t *testing.T) {
	tests := []struct {
		name string
		in   config.RetentionConfig
		want maintenance.RetentionConfig
	}{
		{
			name: "empty uses defaults",
			in:   config.RetentionConfig{},
			want: maintenance.RetentionConfig{RetentionDays: 90, CleanupEnabled: true, CleanupHour: 2},
		},
		{
			name: "explicit values",
			in:   config.RetentionConfig{Days: 30, CleanupEnabled: boolPtr(false), CleanupHour: intPtr(0)},
			want: maintenance.RetentionConfig{RetentionDays: 30, CleanupEnabled: false, CleanupHour: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := retentionFromConfig(tt.in)
			if got.RetentionDays != tt.want.RetentionDays ||
				got.CleanupEnabled != tt.want.CleanupEnabled ||
				got.CleanupHour != tt.want.CleanupHour {
				t.Errorf("retentionFromConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOpenStores_UnsupportedBackends(t *testing.T) {
	ctx := context.Background()

	if _, err := openTenantStore(ctx, &config.TenantStorageConfig{Backend: "mysql"}); err == nil {
		t.Error("expected error for unsupported tenant backend")
	}
	if _, err := openAuditStore(&config.AuditStorageConfig{Backend: "postgres"}); err == nil {
		t.Error("expected error for unsupported audit backend")
	}
	if _, err := openCounterStore(&config.CacheConfig{Backend: "memcached"}); err == nil {
		t.Error("expected error for unsupported cache backend")
	}
}

func TestOpenAuditStore_SQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.db")

	store, err := openAuditStore(&config.AuditStorageConfig{
		Backend: "sqlite",
		SQLite:  config.SQLiteConfig{Path: path, MaxOpenConns: 2, MaxIdleConns: 1, WALMode: boolPtr(true)},
	})
	if err != nil {
		t.Fatalf("openAuditStore failed: %v", err)
	}
	defer store.Close()

	if n, err := store.Count(context.Background()); err != nil || n != 0 {
		t.Errorf("expected empty store, got %d, %v", n, err)
	}
}

func TestApplyRetention(t *testing.T) {
	a := newTestApp(t)
	if err := a.scheduler.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := a.applyRetention(config.RetentionConfig{Days: 180, CleanupHour: intPtr(5)}); err != nil {
		t.Fatalf("applyRetention failed: %v", err)
	}

	got := a.cleaner.RetentionConfig()
	if got.RetentionDays != 180 || got.CleanupHour != 5 {
		t.Errorf("unexpected retention %+v", got)
	}
	for _, job := range a.scheduler.Status().Jobs {
		if job.Name == maintenance.JobAuditCleanup && job.Schedule != "0 5 * * *" {
			t.Errorf("expected restarted cleanup schedule, got %q", job.Schedule)
		}
	}

	// Out of range days leave the policy unchanged
	if err := a.applyRetention(config.RetentionConfig{Days: 10}); err == nil {
		t.Error("expected error for 10 day retention")
	}
	if got := a.cleaner.RetentionConfig(); got.RetentionDays != 180 {
		t.Errorf("invalid update changed retention to %d", got.RetentionDays)
	}
}

func TestOpsHandler(t *testing.T) {
	a := newTestApp(t)
	handler := a.opsHandler("/metrics")

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before the scheduler starts, got %d", rec.Code)
	}

	if err := a.scheduler.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if rec := get("/ready"); rec.Code != http.StatusOK {
		t.Errorf("expected 200 once running, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := get("/health"); rec.Code != http.StatusOK {
		t.Errorf("expected liveness 200, got %d", rec.Code)
	}

	rec := get("/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", rec.Code)
	}
	for _, want := range []string{"tollgate_build_info", "tollgate_maintenance_scheduler_running 1"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestResolveSecrets(t *testing.T) {
	t.Setenv("TOLLGATE_SECRET_REDIS_PASSWORD", "from-env")
	t.Setenv("TOLLGATE_SECRET_BAD_HOOK", "not a url")

	tests := []struct {
		name      string
		webhook   string
		redisPass string
		wantRedis string
		wantErr   bool
	}{
		{"no references", "", "literal", "literal", false},
		{"env reference", "", "${secret:redis-password}", "from-env", false},
		{"missing secret", "", "${secret:nope}", "", true},
		{"resolved webhook is validated", "${secret:bad-hook}", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Cache.Redis.Password = tt.redisPass
			cfg.Notifications.WebhookURL = tt.webhook

			err := resolveSecrets(context.Background(), cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveSecrets() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg.Cache.Redis.Password != tt.wantRedis {
				t.Errorf("redis password = %q, want %q", cfg.Cache.Redis.Password, tt.wantRedis)
			}
		})
	}
}
