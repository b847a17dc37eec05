package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	// Scheduler time zones resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
)

// Config is the root configuration structure for Tollgate.
// It contains all configuration sections for storage, the counter cache,
// quota enforcement, the maintenance scheduler, audit retention,
// notifications, and telemetry.
type Config struct {
	// Storage selects and configures the tenant and audit stores.
	Storage StorageConfig `yaml:"storage"`

	// Cache configures the per-minute rate counter store.
	Cache CacheConfig `yaml:"cache"`

	// Quota contains rate limit and usage tracking settings.
	Quota QuotaConfig `yaml:"quota"`

	// Scheduler contains configuration for the maintenance scheduler and
	// the monthly reset job.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Retention contains the initial audit log retention policy.
	Retention RetentionConfig `yaml:"retention"`

	// Notifications configures job result delivery.
	Notifications NotificationsConfig `yaml:"notifications"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Secrets configures where ${secret:name} references are resolved.
	Secrets SecretsConfig `yaml:"secrets"`
}

// SecretsConfig configures secret reference resolution. The postgres
// password, the redis password and the webhook URL may be written as
// ${secret:name}.
type SecretsConfig struct {
	// EnvPrefix is prepended to the upper-cased secret name to form the
	// environment variable that holds it.
	// Default: "TOLLGATE_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir is a directory of one file per secret, as mounted by Kubernetes.
	// Files must have 0600 or 0400 permissions. Empty disables file lookup.
	Dir string `yaml:"dir"`
}

// IsSecretRef reports whether s is a ${secret:name} reference.
func IsSecretRef(s string) bool {
	return strings.HasPrefix(s, "${secret:") && strings.HasSuffix(s, "}")
}

// StorageConfig contains tenant and audit storage configuration.
type StorageConfig struct {
	// Tenants configures the tenant store.
	Tenants TenantStorageConfig `yaml:"tenants"`

	// Audit configures the audit log store.
	Audit AuditStorageConfig `yaml:"audit"`
}

// TenantStorageConfig selects the tenant store backend.
type TenantStorageConfig struct {
	// Backend is the storage backend type.
	// Options: "memory", "sqlite", "postgres"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres contains PostgreSQL-specific configuration.
	Postgres PostgresConfig `yaml:"postgres"`
}

// AuditStorageConfig selects the audit store backend.
type AuditStorageConfig struct {
	// Backend is the storage backend type.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite storage configuration.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode *bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresConfig contains PostgreSQL storage configuration.
type PostgresConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `yaml:"host"`

	// Port is the PostgreSQL server port.
	// Default: 5432
	Port int `yaml:"port"`

	// Database is the database name.
	Database string `yaml:"database"`

	// User is the database user.
	User string `yaml:"user"`

	// Password is the database password.
	// Use environment variable TOLLGATE_STORAGE_TENANTS_POSTGRES_PASSWORD.
	Password string `yaml:"password"`

	// SSLMode is the SSL mode for connections.
	// Options: "disable", "require", "verify-ca", "verify-full"
	// Default: "require"
	SSLMode string `yaml:"ssl_mode"`

	// MaxConns is the maximum pool size.
	// Default: 10
	MaxConns int32 `yaml:"max_conns"`

	// MinConns is the minimum number of idle pool connections.
	// Default: 0
	MinConns int32 `yaml:"min_conns"`
}

// DSN returns the connection URL for the configured server.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else if c.User != "" {
		u.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{c.SSLMode}}.Encode()
	}
	return u.String()
}

// CacheConfig contains configuration for the rate counter store.
type CacheConfig struct {
	// Backend is the counter store type.
	// Options: "memory", "redis"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Memory contains in-process store configuration.
	Memory MemoryCacheConfig `yaml:"memory"`

	// Redis contains Redis configuration.
	Redis RedisConfig `yaml:"redis"`
}

// MemoryCacheConfig configures the in-process counter store.
type MemoryCacheConfig struct {
	// MaxEntries is the maximum number of counters kept.
	// Default: 100000
	MaxEntries int `yaml:"max_entries"`

	// CleanupInterval is how often expired counters are swept.
	// Default: 1m
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// RedisConfig configures the Redis counter store.
type RedisConfig struct {
	// Addr is the server address in host:port form.
	// Default: "localhost:6379"
	Addr string `yaml:"addr"`

	// Password is the optional AUTH password.
	Password string `yaml:"password"`

	// DB selects the logical database.
	// Default: 0
	DB int `yaml:"db"`

	// DialTimeout bounds the initial connection check.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// QuotaConfig contains quota enforcement configuration.
type QuotaConfig struct {
	// Window is the lifetime of a per-minute rate counter.
	// Default: 60s
	Window time.Duration `yaml:"window"`

	// UsageTimeout bounds each detached monthly usage update.
	// Default: 5s
	UsageTimeout time.Duration `yaml:"usage_timeout"`
}

// SchedulerConfig contains maintenance scheduler configuration.
type SchedulerConfig struct {
	// Enabled controls whether "tollgate run" starts the scheduler.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Timezone is the IANA zone schedules are evaluated in.
	// Default: "UTC"
	Timezone string `yaml:"timezone"`

	// MonthlyResetSchedule is the cron expression for the monthly reset.
	// Default: "0 0 1 * *"
	MonthlyResetSchedule string `yaml:"monthly_reset_schedule"`

	// PageSize is the maximum number of tenants reset per run.
	// Default: 1000
	PageSize int `yaml:"page_size"`

	// MaxAttempts is the number of reset attempts per tenant.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// RetryDelay is the pause between attempts for one tenant.
	// Default: 1s
	RetryDelay time.Duration `yaml:"retry_delay"`

	// ShutdownTimeout bounds how long shutdown waits for in-flight jobs.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RetentionConfig contains the initial audit retention policy.
type RetentionConfig struct {
	// Days is how long audit records are kept.
	// Range: 30 to 730
	// Default: 90
	Days int `yaml:"days"`

	// CleanupEnabled turns audit cleanup on or off.
	// Default: true
	CleanupEnabled *bool `yaml:"cleanup_enabled"`

	// CleanupHour is the hour of day cleanup runs at.
	// Range: 0 to 23
	// Default: 2
	CleanupHour *int `yaml:"cleanup_hour"`
}

// NotificationsConfig contains job notification configuration.
type NotificationsConfig struct {
	// Enabled controls whether notifications are delivered at all.
	// Results are logged either way.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// WebhookURL receives a JSON POST per delivered notification.
	WebhookURL string `yaml:"webhook_url"`

	// Timeout bounds each webhook request.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// MinFailureThreshold is the minimum failure count for which a failed
	// job is delivered.
	// Default: 1
	MinFailureThreshold int `yaml:"min_failure_threshold"`

	// EmailEnabled enables email delivery.
	// Default: false
	EmailEnabled bool `yaml:"email_enabled"`

	// EmailRecipients is the list of email addresses to notify.
	EmailRecipients []string `yaml:"email_recipients"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks passwords, tokens, and connection strings.
	// Default: true
	RedactSecrets *bool `yaml:"redact_secrets"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// ListenAddress is the address the metrics endpoint listens on.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the trace exporter to use.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the trace collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "tollgate"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// Location returns the scheduler's time zone.
func (c SchedulerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// IsEnabled reports whether the scheduler should start. A nil Enabled
// counts as true.
func (c SchedulerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsEnabled reports whether the metrics endpoint is served.
func (c MetricsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
