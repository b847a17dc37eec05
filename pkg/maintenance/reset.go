package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/tollgate/pkg/notify"
	"mercator-hq/tollgate/pkg/telemetry/logging"
	"mercator-hq/tollgate/pkg/tenant"
)

const tracerName = "mercator-hq/tollgate/pkg/maintenance"

// Notifier receives job results. *notify.Dispatcher satisfies it.
type Notifier interface {
	Dispatch(ctx context.Context, source notify.Source)
}

// ResetConfig configures a ResetExecutor.
type ResetConfig struct {
	// PageSize is the maximum number of active tenants reset per run.
	// Default: 1000
	PageSize int

	// MaxAttempts is the number of reset attempts per tenant.
	// Default: 3
	MaxAttempts int

	// RetryDelay is the pause between attempts for one tenant. A negative
	// value retries immediately.
	// Default: 1 second
	RetryDelay time.Duration

	// Metrics receives job metrics. Default: unregistered collectors.
	Metrics *Metrics
}

// ResetExecutor zeroes the monthly usage of every active tenant.
type ResetExecutor struct {
	tenants  tenant.Store
	notifier Notifier
	config   ResetConfig
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer

	// sleep waits between attempts; replaced in tests.
	sleep func(time.Duration)

	// now returns the current time; replaced in tests.
	now func() time.Time

	mu   sync.RWMutex
	last *ResetJobResult
}

// NewResetExecutor creates a reset executor. notifier may be nil.
func NewResetExecutor(tenants tenant.Store, notifier Notifier, cfg ResetConfig) *ResetExecutor {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	} else if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}

	return &ResetExecutor{
		tenants:  tenants,
		notifier: notifier,
		config:   cfg,
		metrics:  cfg.Metrics,
		logger:   slog.Default().With("component", "maintenance.reset"),
		tracer:   otel.Tracer(tracerName),
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// ExecuteMonthlyReset resets every active tenant, in listing order, one at a
// time. A tenant whose reset keeps failing is recorded in the result and
// does not stop the run. The result is always reported to the notifier.
//
// The only returned error is a *StorageFault from listing tenants, in which
// case no tenant was reset.
//
// Resetting is idempotent, so an interrupted run can simply be repeated.
func (e *ResetExecutor) ExecuteMonthlyReset(ctx context.Context) (*ResetJobResult, error) {
	start := e.now()
	runID := uuid.New().String()

	ctx = logging.WithJob(ctx, JobMonthlyReset)
	ctx = logging.WithRunID(ctx, runID)
	log := logging.FromContext(ctx, e.logger)

	ctx, span := e.tracer.Start(ctx, "maintenance.monthly_reset",
		trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	log.Info("monthly reset started", "page_size", e.config.PageSize)

	tenants, err := e.tenants.ListActive(ctx, e.config.PageSize)
	if err != nil {
		fault := &StorageFault{Job: JobMonthlyReset, Operation: "list_active", Cause: err}
		result := &ResetJobResult{
			RunID:      runID,
			Timestamp:  start,
			DurationMs: e.now().Sub(start).Milliseconds(),
			Errors:     []TenantError{},
			Fault:      err.Error(),
		}

		span.RecordError(fault)
		span.SetStatus(codes.Error, "list active tenants")
		log.Error("monthly reset aborted", "error", err)

		e.finish(ctx, result, "error", start)
		return result, fault
	}

	result := &ResetJobResult{
		RunID:        runID,
		Timestamp:    start,
		TotalTenants: len(tenants),
		Errors:       []TenantError{},
	}

	for _, t := range tenants {
		if err := e.resetTenantWithRetry(ctx, t.ID); err != nil {
			result.FailureCount++
			result.Errors = append(result.Errors, TenantError{TenantID: t.ID, Error: err.Error()})
			e.metrics.resetFailures.Inc()
			continue
		}
		result.SuccessCount++
	}

	result.Success = result.FailureCount == 0
	result.DurationMs = e.now().Sub(start).Milliseconds()

	span.SetAttributes(
		attribute.Int("tenants.total", result.TotalTenants),
		attribute.Int("tenants.failed", result.FailureCount),
	)

	status := "success"
	if !result.Success {
		status = "partial"
		span.SetStatus(codes.Error, "tenant resets failed")
	}

	log.Info("monthly reset completed",
		"total", result.TotalTenants,
		"succeeded", result.SuccessCount,
		"failed", result.FailureCount,
		"duration_ms", result.DurationMs,
	)

	e.finish(ctx, result, status, start)
	return result, nil
}

// finish stores the result as the last execution and reports it.
func (e *ResetExecutor) finish(ctx context.Context, result *ResetJobResult, status string, start time.Time) {
	e.mu.Lock()
	e.last = result
	e.mu.Unlock()

	e.metrics.RecordJob(JobMonthlyReset, status, e.now().Sub(start))

	if e.notifier != nil {
		e.notifier.Dispatch(ctx, result)
	}
}

// resetTenantWithRetry attempts the reset up to MaxAttempts times, sleeping
// RetryDelay between attempts. It returns the last error if every attempt
// failed.
func (e *ResetExecutor) resetTenantWithRetry(ctx context.Context, tenantID string) error {
	log := logging.FromContext(logging.WithTenantID(ctx, tenantID), e.logger)

	var err error
	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		if err = e.tenants.ResetMonthlyUsage(ctx, tenantID); err == nil {
			if attempt > 1 {
				log.Info("tenant reset succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if attempt < e.config.MaxAttempts {
			log.Warn("tenant reset failed, retrying",
				"attempt", attempt,
				"max_attempts", e.config.MaxAttempts,
				"error", err,
			)
			e.metrics.resetRetries.Inc()
			e.sleep(e.config.RetryDelay)
		}
	}

	log.Error("tenant reset failed", "attempts", e.config.MaxAttempts, "error", err)
	return err
}

// LastExecution returns the most recent run's result, or nil.
func (e *ResetExecutor) LastExecution() *ResetJobResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.last == nil {
		return nil
	}
	result := *e.last
	result.Errors = append([]TenantError(nil), e.last.Errors...)
	return &result
}
