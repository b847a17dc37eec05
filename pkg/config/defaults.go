package config

import "time"

// Default values for configuration fields.
const (
	// Storage defaults
	DefaultTenantBackend          = "sqlite"
	DefaultTenantSQLitePath       = "data/tenants.db"
	DefaultAuditBackend           = "sqlite"
	DefaultAuditSQLitePath        = "data/audit.db"
	DefaultSQLiteMaxOpenConns     = 10
	DefaultSQLiteMaxIdleConns     = 5
	DefaultSQLiteWALMode          = true
	DefaultSQLiteBusyTimeout      = 5 * time.Second
	DefaultPostgresPort           = 5432
	DefaultPostgresSSLMode        = "require"
	DefaultPostgresMaxConns int32 = 10

	// Cache defaults
	DefaultCacheBackend         = "memory"
	DefaultCacheMaxEntries      = 100000
	DefaultCacheCleanupInterval = time.Minute
	DefaultRedisAddr            = "localhost:6379"
	DefaultRedisDialTimeout     = 5 * time.Second

	// Quota defaults
	DefaultQuotaWindow       = 60 * time.Second
	DefaultQuotaUsageTimeout = 5 * time.Second

	// Scheduler defaults
	DefaultSchedulerEnabled         = true
	DefaultSchedulerTimezone        = "UTC"
	DefaultMonthlyResetSchedule     = "0 0 1 * *"
	DefaultResetPageSize            = 1000
	DefaultResetMaxAttempts         = 3
	DefaultResetRetryDelay          = time.Second
	DefaultSchedulerShutdownTimeout = 30 * time.Second

	// Retention defaults
	DefaultRetentionDays           = 90
	DefaultRetentionCleanupEnabled = true
	DefaultRetentionCleanupHour    = 2

	// Notification defaults
	DefaultNotificationTimeout          = 10 * time.Second
	DefaultNotificationFailureThreshold = 1

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultLoggingRedactSecrets = true
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultPrometheusPath       = "/metrics"
	DefaultTracingSampler       = "always"
	DefaultTracingSamplingRate  = 1.0
	DefaultTracingExporter      = "otlp"
	DefaultTracingServiceName   = "tollgate"
	DefaultOTLPTimeout          = 10 * time.Second

	// Secrets defaults
	DefaultSecretsEnvPrefix = "TOLLGATE_SECRET_"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Storage defaults
	if cfg.Storage.Tenants.Backend == "" {
		cfg.Storage.Tenants.Backend = DefaultTenantBackend
	}
	if cfg.Storage.Tenants.SQLite.Path == "" {
		cfg.Storage.Tenants.SQLite.Path = DefaultTenantSQLitePath
	}
	applySQLiteDefaults(&cfg.Storage.Tenants.SQLite)

	pg := &cfg.Storage.Tenants.Postgres
	if pg.Port == 0 {
		pg.Port = DefaultPostgresPort
	}
	if pg.SSLMode == "" {
		pg.SSLMode = DefaultPostgresSSLMode
	}
	if pg.MaxConns == 0 {
		pg.MaxConns = DefaultPostgresMaxConns
	}

	if cfg.Storage.Audit.Backend == "" {
		cfg.Storage.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Storage.Audit.SQLite.Path == "" {
		cfg.Storage.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	applySQLiteDefaults(&cfg.Storage.Audit.SQLite)

	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}

	// Cache defaults
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.Memory.MaxEntries == 0 {
		cfg.Cache.Memory.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Cache.Memory.CleanupInterval == 0 {
		cfg.Cache.Memory.CleanupInterval = DefaultCacheCleanupInterval
	}
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Cache.Redis.DialTimeout == 0 {
		cfg.Cache.Redis.DialTimeout = DefaultRedisDialTimeout
	}

	// Quota defaults
	if cfg.Quota.Window == 0 {
		cfg.Quota.Window = DefaultQuotaWindow
	}
	if cfg.Quota.UsageTimeout == 0 {
		cfg.Quota.UsageTimeout = DefaultQuotaUsageTimeout
	}

	// Scheduler defaults
	if cfg.Scheduler.Enabled == nil {
		cfg.Scheduler.Enabled = boolPtr(DefaultSchedulerEnabled)
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = DefaultSchedulerTimezone
	}
	if cfg.Scheduler.MonthlyResetSchedule == "" {
		cfg.Scheduler.MonthlyResetSchedule = DefaultMonthlyResetSchedule
	}
	if cfg.Scheduler.PageSize == 0 {
		cfg.Scheduler.PageSize = DefaultResetPageSize
	}
	if cfg.Scheduler.MaxAttempts == 0 {
		cfg.Scheduler.MaxAttempts = DefaultResetMaxAttempts
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = DefaultResetRetryDelay
	}
	if cfg.Scheduler.ShutdownTimeout == 0 {
		cfg.Scheduler.ShutdownTimeout = DefaultSchedulerShutdownTimeout
	}

	// Retention defaults
	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = DefaultRetentionDays
	}
	if cfg.Retention.CleanupEnabled == nil {
		cfg.Retention.CleanupEnabled = boolPtr(DefaultRetentionCleanupEnabled)
	}
	if cfg.Retention.CleanupHour == nil {
		hour := DefaultRetentionCleanupHour
		cfg.Retention.CleanupHour = &hour
	}

	// Notification defaults
	if cfg.Notifications.Timeout == 0 {
		cfg.Notifications.Timeout = DefaultNotificationTimeout
	}
	if cfg.Notifications.MinFailureThreshold == 0 {
		cfg.Notifications.MinFailureThreshold = DefaultNotificationFailureThreshold
	}

	// Telemetry defaults
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applySQLiteDefaults(cfg *SQLiteConfig) {
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.WALMode == nil {
		cfg.WALMode = boolPtr(DefaultSQLiteWALMode)
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = DefaultSQLiteBusyTimeout
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Logging.RedactSecrets == nil {
		cfg.Logging.RedactSecrets = boolPtr(DefaultLoggingRedactSecrets)
	}

	if cfg.Metrics.Enabled == nil {
		cfg.Metrics.Enabled = boolPtr(DefaultMetricsEnabled)
	}
	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultPrometheusPath
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
}

func boolPtr(v bool) *bool {
	return &v
}
