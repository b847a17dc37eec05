package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/tollgate/pkg/audit"
	"mercator-hq/tollgate/pkg/cache"
	"mercator-hq/tollgate/pkg/config"
	"mercator-hq/tollgate/pkg/maintenance"
	"mercator-hq/tollgate/pkg/notify"
	"mercator-hq/tollgate/pkg/quota"
	"mercator-hq/tollgate/pkg/telemetry/metrics"
	"mercator-hq/tollgate/pkg/telemetry/tracing"
	"mercator-hq/tollgate/pkg/tenant"
)

// app holds the components built from one configuration.
type app struct {
	config    *config.Config
	registry  *prometheus.Registry
	tracer    *tracing.Tracer
	tenants   tenant.Store
	audit     audit.Store
	counters  cache.Store
	notifier  *notify.Dispatcher
	enforcer  *quota.Enforcer
	reset     *maintenance.ResetExecutor
	cleaner   *maintenance.Cleaner
	scheduler *maintenance.Scheduler

	closers []func() error
}

// newApp opens the stores and wires the maintenance jobs. The caller must
// Close the app.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		config:   cfg,
		registry: metrics.NewRegistry(Version),
	}
	built := false
	defer func() {
		if !built {
			a.Close()
		}
	}()

	var err error
	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, func() error { return a.tracer.Shutdown(context.Background()) })

	if a.tenants, err = openTenantStore(ctx, &cfg.Storage.Tenants); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.tenants.Close)

	if a.audit, err = openAuditStore(&cfg.Storage.Audit); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.audit.Close)

	if a.counters, err = openCounterStore(&cfg.Cache); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.counters.Close)

	n := cfg.Notifications
	a.notifier = notify.NewDispatcher(notify.Config{
		Enabled:             n.Enabled,
		WebhookURL:          n.WebhookURL,
		Timeout:             n.Timeout,
		MinFailureThreshold: n.MinFailureThreshold,
		EmailEnabled:        n.EmailEnabled,
		EmailRecipients:     n.EmailRecipients,
		Registerer:          a.registry,
	})

	a.enforcer = quota.NewEnforcer(a.counters, a.tenants, quota.Config{
		Window:       cfg.Quota.Window,
		UsageTimeout: cfg.Quota.UsageTimeout,
		Audit:        a.audit,
		Registerer:   a.registry,
	})

	jobMetrics := maintenance.NewMetrics(a.registry)

	a.reset = maintenance.NewResetExecutor(a.tenants, a.notifier, maintenance.ResetConfig{
		PageSize:    cfg.Scheduler.PageSize,
		MaxAttempts: cfg.Scheduler.MaxAttempts,
		RetryDelay:  cfg.Scheduler.RetryDelay,
		Metrics:     jobMetrics,
	})

	a.cleaner, err = maintenance.NewCleaner(a.audit, retentionFromConfig(cfg.Retention), a.notifier, jobMetrics)
	if err != nil {
		return nil, fmt.Errorf("invalid retention config: %w", err)
	}

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}
	a.scheduler = maintenance.NewScheduler(a.reset, a.cleaner, maintenance.SchedulerConfig{
		Location:             loc,
		MonthlyResetSchedule: cfg.Scheduler.MonthlyResetSchedule,
		Metrics:              jobMetrics,
	})

	built = true
	return a, nil
}

// Close waits for detached quota writes and releases the stores in reverse
// order of opening.
func (a *app) Close() error {
	if a.enforcer != nil {
		a.enforcer.Wait()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openTenantStore(ctx context.Context, cfg *config.TenantStorageConfig) (tenant.Store, error) {
	switch cfg.Backend {
	case "memory":
		return tenant.NewMemoryStore(), nil
	case "sqlite":
		if err := ensureDir(cfg.SQLite.Path); err != nil {
			return nil, err
		}
		store, err := tenant.NewSQLiteStoreWithConfig(tenant.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode == nil || *cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open tenant store: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := tenant.NewPostgresStore(ctx, tenant.PostgresConfig{
			DSN:          cfg.Postgres.DSN(),
			MaxConns:     cfg.Postgres.MaxConns,
			MinConns:     cfg.Postgres.MinConns,
			CreateSchema: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open tenant store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported tenant storage backend: %s", cfg.Backend)
	}
}

func openAuditStore(cfg *config.AuditStorageConfig) (audit.Store, error) {
	switch cfg.Backend {
	case "memory":
		return audit.NewMemoryStore(), nil
	case "sqlite":
		if err := ensureDir(cfg.SQLite.Path); err != nil {
			return nil, err
		}
		store, err := audit.NewSQLiteStore(&audit.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode == nil || *cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported audit storage backend: %s", cfg.Backend)
	}
}

func openCounterStore(cfg *config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "memory":
		return cache.NewMemoryStoreWithConfig(cache.MemoryStoreConfig{
			MaxEntries:      cfg.Memory.MaxEntries,
			CleanupInterval: cfg.Memory.CleanupInterval,
		}), nil
	case "redis":
		store, err := cache.NewRedisStore(cache.RedisConfig{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

// ensureDir creates the parent directory of a database file.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return nil
}

// retentionFromConfig converts the file's retention section to the
// cleaner's policy.
func retentionFromConfig(c config.RetentionConfig) maintenance.RetentionConfig {
	out := maintenance.DefaultRetentionConfig()
	if c.Days != 0 {
		out.RetentionDays = c.Days
	}
	if c.CleanupEnabled != nil {
		out.CleanupEnabled = *c.CleanupEnabled
	}
	if c.CleanupHour != nil {
		out.CleanupHour = *c.CleanupHour
	}
	return out
}

// applyRetention applies a reloaded retention section to the running
// cleaner, restarting the scheduler when the cleanup hour moved. An invalid
// section leaves the current policy in place.
func (a *app) applyRetention(c config.RetentionConfig) error {
	next := retentionFromConfig(c)
	before := a.cleaner.RetentionConfig()

	updated, err := a.cleaner.UpdateRetentionConfig(maintenance.RetentionUpdate{
		RetentionDays:  &next.RetentionDays,
		CleanupEnabled: &next.CleanupEnabled,
		CleanupHour:    &next.CleanupHour,
	})
	if err != nil {
		return err
	}

	if updated.CleanupHour != before.CleanupHour && a.scheduler.IsRunning() {
		slog.Info("cleanup hour changed, restarting scheduler",
			"from", before.CleanupHour,
			"to", updated.CleanupHour,
		)
		return a.scheduler.Restart()
	}
	return nil
}
