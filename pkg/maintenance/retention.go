package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/tollgate/pkg/audit"
	"mercator-hq/tollgate/pkg/telemetry/logging"
)

// Retention bounds.
const (
	MinRetentionDays = 30
	MaxRetentionDays = 730
	MinCleanupHour   = 0
	MaxCleanupHour   = 23
)

// RetentionConfig is the audit log retention policy. Values returned by the
// Cleaner are snapshots; changing them has no effect.
type RetentionConfig struct {
	// RetentionDays is how long audit records are kept, in [30, 730].
	RetentionDays int `json:"retention_days"`

	// CleanupEnabled turns scheduled and manual cleanup on or off.
	CleanupEnabled bool `json:"cleanup_enabled"`

	// CleanupHour is the hour of day, in [0, 23], at which cleanup runs.
	CleanupHour int `json:"cleanup_hour"`

	// LastCleanup is when the last cleanup completed.
	LastCleanup *time.Time `json:"last_cleanup,omitempty"`

	// LastDeletedCount is how many records the last cleanup removed.
	LastDeletedCount *int64 `json:"last_deleted_count,omitempty"`
}

// DefaultRetentionConfig returns the default policy: 90 days, enabled, 2 AM.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		RetentionDays:  90,
		CleanupEnabled: true,
		CleanupHour:    2,
	}
}

// Validate checks the retention bounds.
func (c RetentionConfig) Validate() error {
	if c.RetentionDays < MinRetentionDays || c.RetentionDays > MaxRetentionDays {
		return &ValidationError{
			Field:   "retention_days",
			Value:   c.RetentionDays,
			Message: fmt.Sprintf("must be between %d and %d", MinRetentionDays, MaxRetentionDays),
		}
	}
	if c.CleanupHour < MinCleanupHour || c.CleanupHour > MaxCleanupHour {
		return &ValidationError{
			Field:   "cleanup_hour",
			Value:   c.CleanupHour,
			Message: fmt.Sprintf("must be between %d and %d", MinCleanupHour, MaxCleanupHour),
		}
	}
	return nil
}

func (c RetentionConfig) clone() RetentionConfig {
	out := c
	if c.LastCleanup != nil {
		t := *c.LastCleanup
		out.LastCleanup = &t
	}
	if c.LastDeletedCount != nil {
		n := *c.LastDeletedCount
		out.LastDeletedCount = &n
	}
	return out
}

// RetentionUpdate is a partial change to the retention policy. Nil fields
// are left unchanged.
type RetentionUpdate struct {
	RetentionDays  *int  `json:"retention_days,omitempty"`
	CleanupEnabled *bool `json:"cleanup_enabled,omitempty"`
	CleanupHour    *int  `json:"cleanup_hour,omitempty"`
}

// Cleaner deletes audit records older than the retention window. It owns
// the process's single RetentionConfig.
type Cleaner struct {
	store    audit.Store
	notifier Notifier
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer

	// now returns the current time; replaced in tests.
	now func() time.Time

	mu     sync.RWMutex
	config RetentionConfig
}

// NewCleaner creates a cleaner with the given initial policy. notifier and
// metrics may be nil.
func NewCleaner(store audit.Store, cfg RetentionConfig, notifier Notifier, metrics *Metrics) (*Cleaner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Cleaner{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		logger:   slog.Default().With("component", "maintenance.retention"),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		config:   cfg.clone(),
	}, nil
}

// CleanupOldLogs deletes audit records created before now minus the
// retention window, in one bulk delete. When cleanup is disabled it returns
// zero deletions without touching storage. Storage errors are returned.
func (c *Cleaner) CleanupOldLogs(ctx context.Context) (CleanupResult, error) {
	cfg := c.RetentionConfig()
	now := c.now()

	if !cfg.CleanupEnabled {
		c.logger.Debug("audit cleanup disabled, skipping")
		return CleanupResult{DeletedRecords: 0, CutoffDate: now}, nil
	}

	ctx = logging.WithJob(ctx, JobAuditCleanup)
	log := logging.FromContext(ctx, c.logger)

	ctx, span := c.tracer.Start(ctx, "maintenance.audit_cleanup",
		trace.WithAttributes(attribute.Int("retention_days", cfg.RetentionDays)))
	defer span.End()

	cutoff := now.AddDate(0, 0, -cfg.RetentionDays)

	deleted, err := c.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete older than")
		c.metrics.RecordJob(JobAuditCleanup, "error", c.now().Sub(now))
		log.Error("audit cleanup failed", "cutoff", cutoff, "error", err)
		return CleanupResult{}, fmt.Errorf("failed to delete audit records: %w", err)
	}

	c.mu.Lock()
	finished := c.now()
	c.config.LastCleanup = &finished
	c.config.LastDeletedCount = &deleted
	c.mu.Unlock()

	c.metrics.cleanupDeleted.Add(float64(deleted))
	c.metrics.RecordJob(JobAuditCleanup, "success", finished.Sub(now))
	span.SetAttributes(attribute.Int64("records.deleted", deleted))

	log.Info("audit cleanup completed",
		"deleted", deleted,
		"cutoff", cutoff,
		"retention_days", cfg.RetentionDays,
	)

	return CleanupResult{DeletedRecords: deleted, CutoffDate: cutoff}, nil
}

// CleanupAndReport runs CleanupOldLogs and reports the outcome to the
// notifier, whether or not it succeeded.
func (c *Cleaner) CleanupAndReport(ctx context.Context) (CleanupResult, error) {
	result, err := c.CleanupOldLogs(ctx)
	if c.notifier != nil {
		c.notifier.Dispatch(ctx, CleanupOutcome{
			Result:        result,
			Err:           err,
			RetentionDays: c.RetentionConfig().RetentionDays,
			Timestamp:     c.now(),
		})
	}
	return result, err
}

// RetentionConfig returns a snapshot of the current policy.
func (c *Cleaner) RetentionConfig() RetentionConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.clone()
}

// UpdateRetentionConfig applies the non-nil fields of update and returns the
// new policy. Out-of-range values return a *ValidationError and leave the
// policy unchanged. Callers must restart the scheduler after changing
// CleanupHour.
func (c *Cleaner) UpdateRetentionConfig(update RetentionUpdate) (RetentionConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.config.clone()
	if update.RetentionDays != nil {
		next.RetentionDays = *update.RetentionDays
	}
	if update.CleanupEnabled != nil {
		next.CleanupEnabled = *update.CleanupEnabled
	}
	if update.CleanupHour != nil {
		next.CleanupHour = *update.CleanupHour
	}

	if err := next.Validate(); err != nil {
		return c.config.clone(), err
	}

	c.config = next
	c.logger.Info("retention config updated",
		"retention_days", next.RetentionDays,
		"cleanup_enabled", next.CleanupEnabled,
		"cleanup_hour", next.CleanupHour,
	)
	return next.clone(), nil
}
