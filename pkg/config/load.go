package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention TOLLGATE_SECTION_FIELD (e.g., TOLLGATE_RETENTION_DAYS).
// Environment variables always take precedence over file-based configuration.
//
// An empty path loads the defaults, so the binary runs without a file.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format TOLLGATE_SECTION_FIELD. Values that do
// not parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Storage overrides
	envString("TOLLGATE_STORAGE_TENANTS_BACKEND", &cfg.Storage.Tenants.Backend)
	envString("TOLLGATE_STORAGE_TENANTS_SQLITE_PATH", &cfg.Storage.Tenants.SQLite.Path)
	envString("TOLLGATE_STORAGE_TENANTS_POSTGRES_HOST", &cfg.Storage.Tenants.Postgres.Host)
	envInt("TOLLGATE_STORAGE_TENANTS_POSTGRES_PORT", &cfg.Storage.Tenants.Postgres.Port)
	envString("TOLLGATE_STORAGE_TENANTS_POSTGRES_DATABASE", &cfg.Storage.Tenants.Postgres.Database)
	envString("TOLLGATE_STORAGE_TENANTS_POSTGRES_USER", &cfg.Storage.Tenants.Postgres.User)
	envString("TOLLGATE_STORAGE_TENANTS_POSTGRES_PASSWORD", &cfg.Storage.Tenants.Postgres.Password)
	envString("TOLLGATE_STORAGE_TENANTS_POSTGRES_SSL_MODE", &cfg.Storage.Tenants.Postgres.SSLMode)
	envString("TOLLGATE_STORAGE_AUDIT_BACKEND", &cfg.Storage.Audit.Backend)
	envString("TOLLGATE_STORAGE_AUDIT_SQLITE_PATH", &cfg.Storage.Audit.SQLite.Path)

	// Cache overrides
	envString("TOLLGATE_CACHE_BACKEND", &cfg.Cache.Backend)
	envString("TOLLGATE_CACHE_REDIS_ADDR", &cfg.Cache.Redis.Addr)
	envString("TOLLGATE_CACHE_REDIS_PASSWORD", &cfg.Cache.Redis.Password)
	envInt("TOLLGATE_CACHE_REDIS_DB", &cfg.Cache.Redis.DB)

	// Quota overrides
	envDuration("TOLLGATE_QUOTA_WINDOW", &cfg.Quota.Window)
	envDuration("TOLLGATE_QUOTA_USAGE_TIMEOUT", &cfg.Quota.UsageTimeout)

	// Scheduler overrides
	envBoolPtr("TOLLGATE_SCHEDULER_ENABLED", &cfg.Scheduler.Enabled)
	envString("TOLLGATE_SCHEDULER_TIMEZONE", &cfg.Scheduler.Timezone)
	envString("TOLLGATE_SCHEDULER_MONTHLY_RESET_SCHEDULE", &cfg.Scheduler.MonthlyResetSchedule)
	envInt("TOLLGATE_SCHEDULER_PAGE_SIZE", &cfg.Scheduler.PageSize)
	envInt("TOLLGATE_SCHEDULER_MAX_ATTEMPTS", &cfg.Scheduler.MaxAttempts)
	envDuration("TOLLGATE_SCHEDULER_RETRY_DELAY", &cfg.Scheduler.RetryDelay)

	// Retention overrides
	envInt("TOLLGATE_RETENTION_DAYS", &cfg.Retention.Days)
	envBoolPtr("TOLLGATE_RETENTION_CLEANUP_ENABLED", &cfg.Retention.CleanupEnabled)
	if val := os.Getenv("TOLLGATE_RETENTION_CLEANUP_HOUR"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Retention.CleanupHour = &i
		}
	}

	// Notification overrides
	if val := os.Getenv("TOLLGATE_NOTIFICATIONS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Notifications.Enabled = b
		}
	}
	envString("TOLLGATE_NOTIFICATIONS_WEBHOOK_URL", &cfg.Notifications.WebhookURL)
	envInt("TOLLGATE_NOTIFICATIONS_MIN_FAILURE_THRESHOLD", &cfg.Notifications.MinFailureThreshold)
	if val := os.Getenv("TOLLGATE_NOTIFICATIONS_EMAIL_RECIPIENTS"); val != "" {
		cfg.Notifications.EmailRecipients = splitList(val)
	}

	// Secrets overrides
	envString("TOLLGATE_SECRETS_DIR", &cfg.Secrets.Dir)

	// Telemetry overrides
	envString("TOLLGATE_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TOLLGATE_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBoolPtr("TOLLGATE_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TOLLGATE_TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	envString("TOLLGATE_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	if val := os.Getenv("TOLLGATE_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	envString("TOLLGATE_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv("TOLLGATE_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envBoolPtr(key string, dst **bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = &b
		}
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
