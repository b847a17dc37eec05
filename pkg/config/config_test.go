package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Storage.Tenants.Backend != "sqlite" || cfg.Storage.Audit.Backend != "sqlite" {
		t.Errorf("unexpected storage backends: %q, %q", cfg.Storage.Tenants.Backend, cfg.Storage.Audit.Backend)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("expected memory cache, got %q", cfg.Cache.Backend)
	}
	if cfg.Quota.Window != 60*time.Second {
		t.Errorf("expected 60s window, got %v", cfg.Quota.Window)
	}
	if cfg.Scheduler.MonthlyResetSchedule != "0 0 1 * *" || cfg.Scheduler.PageSize != 1000 || cfg.Scheduler.MaxAttempts != 3 {
		t.Errorf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
	if cfg.Retention.Days != 90 || !*cfg.Retention.CleanupEnabled || *cfg.Retention.CleanupHour != 2 {
		t.Errorf("unexpected retention defaults: days=%d", cfg.Retention.Days)
	}
	if cfg.Notifications.Enabled || cfg.Notifications.MinFailureThreshold != 1 {
		t.Errorf("unexpected notification defaults: %+v", cfg.Notifications)
	}
	if !cfg.Scheduler.IsEnabled() || !cfg.Telemetry.Metrics.IsEnabled() {
		t.Error("expected scheduler and metrics enabled by default")
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := Default()
	cfg.Retention.Days = 365
	ApplyDefaults(cfg)

	if cfg.Retention.Days != 365 {
		t.Errorf("ApplyDefaults overwrote explicit value: %d", cfg.Retention.Days)
	}
}

func TestApplyDefaults_ExplicitFalseKept(t *testing.T) {
	disabled := false
	hour := 0
	cfg := &Config{Retention: RetentionConfig{CleanupEnabled: &disabled, CleanupHour: &hour}}
	ApplyDefaults(cfg)

	if *cfg.Retention.CleanupEnabled {
		t.Error("explicit cleanup_enabled: false was replaced by the default")
	}
	if *cfg.Retention.CleanupHour != 0 {
		t.Errorf("explicit cleanup_hour 0 was replaced by %d", *cfg.Retention.CleanupHour)
	}
}

func TestPostgresConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  PostgresConfig
		want string
	}{
		{
			name: "full",
			cfg:  PostgresConfig{Host: "db", Port: 5432, Database: "tollgate", User: "app", Password: "s3cret", SSLMode: "require"},
			want: "postgres://app:s3cret@db:5432/tollgate?sslmode=require",
		},
		{
			name: "no password",
			cfg:  PostgresConfig{Host: "db", Port: 5433, Database: "t", User: "app", SSLMode: "disable"},
			want: "postgres://app@db:5433/t?sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSchedulerConfig_Location(t *testing.T) {
	cfg := SchedulerConfig{Timezone: "Europe/Berlin"}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location failed: %v", err)
	}
	if loc.String() != "Europe/Berlin" {
		t.Errorf("unexpected location %q", loc)
	}
}

func TestIsSecretRef(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"${secret:redis-password}", true},
		{"${secret:}", true},
		{"plain", false},
		{"prefix ${secret:x}", false},
		{"${secret:x", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsSecretRef(tt.in); got != tt.want {
			t.Errorf("IsSecretRef(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefault_SecretsEnvPrefix(t *testing.T) {
	if got := Default().Secrets.EnvPrefix; got != "TOLLGATE_SECRET_" {
		t.Errorf("unexpected default env prefix %q", got)
	}
}
