package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"unknown tenant backend", func(c *Config) { c.Storage.Tenants.Backend = "mysql" }, "storage.tenants.backend"},
		{"postgres without host", func(c *Config) {
			c.Storage.Tenants.Backend = "postgres"
			c.Storage.Tenants.Postgres.Database = "t"
		}, "storage.tenants.postgres.host"},
		{"postgres bad ssl mode", func(c *Config) {
			c.Storage.Tenants.Backend = "postgres"
			c.Storage.Tenants.Postgres.Host = "db"
			c.Storage.Tenants.Postgres.Database = "t"
			c.Storage.Tenants.Postgres.SSLMode = "maybe"
		}, "storage.tenants.postgres.ssl_mode"},
		{"postgres min above max", func(c *Config) {
			c.Storage.Tenants.Backend = "postgres"
			c.Storage.Tenants.Postgres.Host = "db"
			c.Storage.Tenants.Postgres.Database = "t"
			c.Storage.Tenants.Postgres.MinConns = 20
		}, "storage.tenants.postgres.max_conns"},
		{"sqlite without path", func(c *Config) { c.Storage.Audit.SQLite.Path = "" }, "storage.audit.sqlite.path"},
		{"audit on postgres", func(c *Config) { c.Storage.Audit.Backend = "postgres" }, "storage.audit.backend"},
		{"redis without addr", func(c *Config) {
			c.Cache.Backend = "redis"
			c.Cache.Redis.Addr = ""
		}, "cache.redis.addr"},
		{"short window", func(c *Config) { c.Quota.Window = 0 }, "quota.window"},
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, "scheduler.timezone"},
		{"bad cron", func(c *Config) { c.Scheduler.MonthlyResetSchedule = "every month" }, "scheduler.monthly_reset_schedule"},
		{"zero attempts", func(c *Config) { c.Scheduler.MaxAttempts = 0 }, "scheduler.max_attempts"},
		{"retention too short", func(c *Config) { c.Retention.Days = 29 }, "retention.days"},
		{"retention too long", func(c *Config) { c.Retention.Days = 731 }, "retention.days"},
		{"cleanup hour 24", func(c *Config) {
			h := 24
			c.Retention.CleanupHour = &h
		}, "retention.cleanup_hour"},
		{"relative webhook", func(c *Config) { c.Notifications.WebhookURL = "/hooks/x" }, "notifications.webhook_url"},
		{"webhook secret reference", func(c *Config) { c.Notifications.WebhookURL = "${secret:slack-webhook}" }, ""},
		{"email without recipients", func(c *Config) { c.Notifications.EmailEnabled = true }, "notifications.email_recipients"},
		{"bad log level", func(c *Config) { c.Telemetry.Logging.Level = "verbose" }, "telemetry.logging.level"},
		{"metrics path", func(c *Config) { c.Telemetry.Metrics.Path = "metrics" }, "telemetry.metrics.path"},
		{"tracing without endpoint", func(c *Config) { c.Telemetry.Tracing.Enabled = true }, "telemetry.tracing.endpoint"},
		{"bad sampler", func(c *Config) { c.Telemetry.Tracing.Sampler = "sometimes" }, "telemetry.tracing.sampler"},
		{"ratio out of range", func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 }, "telemetry.tracing.sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			verr, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
			if !verr.HasField(tt.wantField) {
				t.Errorf("expected error for %s, got %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "retention.days", Message: "too small"}}}
	if got := single.Error(); got != "configuration validation failed: retention.days: too small" {
		t.Errorf("unexpected message %q", got)
	}

	multi := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "x"},
		{Field: "b", Message: "y"},
	}}
	if got := multi.Error(); !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: y") {
		t.Errorf("unexpected message %q", got)
	}
}
