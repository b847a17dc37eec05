package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "retention.days").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// HasField reports whether field failed validation.
func (e ValidationError) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Retention bounds, mirrored by the maintenance package.
const (
	minRetentionDays = 30
	maxRetentionDays = 730
)

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateQuota(&cfg.Quota)...)
	errs = append(errs, validateScheduler(&cfg.Scheduler)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateNotifications(&cfg.Notifications)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateStorage validates tenant and audit storage configuration.
func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Tenants.Backend {
	case "memory":
	case "sqlite":
		errs = append(errs, validateSQLite("storage.tenants.sqlite", &cfg.Tenants.SQLite)...)
	case "postgres":
		pg := &cfg.Tenants.Postgres
		if pg.Host == "" {
			errs = append(errs, FieldError{
				Field:   "storage.tenants.postgres.host",
				Message: "host is required for postgres backend",
			})
		}
		if pg.Database == "" {
			errs = append(errs, FieldError{
				Field:   "storage.tenants.postgres.database",
				Message: "database is required for postgres backend",
			})
		}
		if pg.Port < 1 || pg.Port > 65535 {
			errs = append(errs, FieldError{
				Field:   "storage.tenants.postgres.port",
				Message: fmt.Sprintf("port %d out of range (1-65535)", pg.Port),
			})
		}
		validModes := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
		if !validModes[pg.SSLMode] {
			errs = append(errs, FieldError{
				Field:   "storage.tenants.postgres.ssl_mode",
				Message: fmt.Sprintf("invalid ssl mode %q: must be 'disable', 'require', 'verify-ca', or 'verify-full'", pg.SSLMode),
			})
		}
		if pg.MaxConns < 1 || pg.MinConns < 0 || pg.MinConns > pg.MaxConns {
			errs = append(errs, FieldError{
				Field:   "storage.tenants.postgres.max_conns",
				Message: "max conns must be positive and at least min conns",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "storage.tenants.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', or 'postgres'", cfg.Tenants.Backend),
		})
	}

	switch cfg.Audit.Backend {
	case "memory":
	case "sqlite":
		errs = append(errs, validateSQLite("storage.audit.sqlite", &cfg.Audit.SQLite)...)
	default:
		errs = append(errs, FieldError{
			Field:   "storage.audit.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Audit.Backend),
		})
	}

	return errs
}

func validateSQLite(prefix string, cfg *SQLiteConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   prefix + ".path",
			Message: "path is required for sqlite backend",
		})
	}
	if cfg.MaxOpenConns < 0 || cfg.MaxIdleConns < 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".max_open_conns",
			Message: "connection limits must be non-negative",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".busy_timeout",
			Message: "busy timeout must be non-negative",
		})
	}

	return errs
}

// validateCache validates counter store configuration.
func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
		if cfg.Memory.MaxEntries < 0 {
			errs = append(errs, FieldError{
				Field:   "cache.memory.max_entries",
				Message: "max entries must be non-negative",
			})
		}
		if cfg.Memory.CleanupInterval < 0 {
			errs = append(errs, FieldError{
				Field:   "cache.memory.cleanup_interval",
				Message: "cleanup interval must be positive",
			})
		}
	case "redis":
		if cfg.Redis.Addr == "" {
			errs = append(errs, FieldError{
				Field:   "cache.redis.addr",
				Message: "address is required for redis backend",
			})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{
				Field:   "cache.redis.db",
				Message: "db must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "cache.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'redis'", cfg.Backend),
		})
	}

	return errs
}

// validateQuota validates quota enforcement configuration.
func validateQuota(cfg *QuotaConfig) []FieldError {
	var errs []FieldError

	if cfg.Window < time.Second {
		errs = append(errs, FieldError{
			Field:   "quota.window",
			Message: "window must be at least 1s",
		})
	}
	if cfg.UsageTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "quota.usage_timeout",
			Message: "usage timeout must be positive",
		})
	}

	return errs
}

// validateScheduler validates scheduler configuration.
func validateScheduler(cfg *SchedulerConfig) []FieldError {
	var errs []FieldError

	if _, err := cfg.Location(); err != nil {
		errs = append(errs, FieldError{
			Field:   "scheduler.timezone",
			Message: fmt.Sprintf("unknown time zone %q", cfg.Timezone),
		})
	}
	if _, err := cron.ParseStandard(cfg.MonthlyResetSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "scheduler.monthly_reset_schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}
	if cfg.PageSize < 1 {
		errs = append(errs, FieldError{
			Field:   "scheduler.page_size",
			Message: "page size must be positive",
		})
	}
	if cfg.MaxAttempts < 1 || cfg.MaxAttempts > 10 {
		errs = append(errs, FieldError{
			Field:   "scheduler.max_attempts",
			Message: "max attempts must be between 1 and 10",
		})
	}
	if cfg.RetryDelay < 0 {
		errs = append(errs, FieldError{
			Field:   "scheduler.retry_delay",
			Message: "retry delay must be non-negative",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "scheduler.shutdown_timeout",
			Message: "shutdown timeout must be non-negative",
		})
	}

	return errs
}

// validateRetention validates the audit retention policy.
func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	if cfg.Days < minRetentionDays || cfg.Days > maxRetentionDays {
		errs = append(errs, FieldError{
			Field:   "retention.days",
			Message: fmt.Sprintf("retention days must be between %d and %d, got %d", minRetentionDays, maxRetentionDays, cfg.Days),
		})
	}
	if cfg.CleanupHour != nil && (*cfg.CleanupHour < 0 || *cfg.CleanupHour > 23) {
		errs = append(errs, FieldError{
			Field:   "retention.cleanup_hour",
			Message: fmt.Sprintf("cleanup hour must be between 0 and 23, got %d", *cfg.CleanupHour),
		})
	}

	return errs
}

// validateNotifications validates notification configuration.
func validateNotifications(cfg *NotificationsConfig) []FieldError {
	var errs []FieldError

	if cfg.WebhookURL != "" && !IsSecretRef(cfg.WebhookURL) {
		u, err := url.Parse(cfg.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   "notifications.webhook_url",
				Message: "webhook url must be an absolute http(s) URL",
			})
		}
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "notifications.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.MinFailureThreshold < 1 {
		errs = append(errs, FieldError{
			Field:   "notifications.min_failure_threshold",
			Message: "min failure threshold must be at least 1",
		})
	}
	if cfg.EmailEnabled && len(cfg.EmailRecipients) == 0 {
		errs = append(errs, FieldError{
			Field:   "notifications.email_recipients",
			Message: "at least one recipient is required when email is enabled",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	// Validate metrics endpoint
	if cfg.Metrics.IsEnabled() {
		if cfg.Metrics.ListenAddress == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: "listen address is required when metrics are enabled",
			})
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}
	if cfg.Tracing.Exporter != "otlp" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.exporter",
			Message: fmt.Sprintf("unsupported exporter %q: must be 'otlp'", cfg.Tracing.Exporter),
		})
	}

	return errs
}
