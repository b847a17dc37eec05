package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"mercator-hq/tollgate/pkg/audit"
	"mercator-hq/tollgate/pkg/cache"
	"mercator-hq/tollgate/pkg/telemetry/logging"
	"mercator-hq/tollgate/pkg/tenant"
)

// Enforcer applies per-minute rate limits and monthly quotas.
// It is safe for concurrent use.
type Enforcer struct {
	counters cache.Store
	usage    UsageRecorder
	config   Config
	metrics  *Metrics
	logger   *slog.Logger

	// inflight tracks detached usage and audit writes.
	inflight sync.WaitGroup
}

// NewEnforcer creates an enforcer. usage may be nil, in which case monthly
// usage is never incremented.
func NewEnforcer(counters cache.Store, usage UsageRecorder, cfg Config) *Enforcer {
	cfg.applyDefaults()

	return &Enforcer{
		counters: counters,
		usage:    usage,
		config:   cfg,
		metrics:  NewMetrics(cfg.Registerer),
		logger:   slog.Default().With("component", "quota.enforcer"),
	}
}

// CheckMinuteRate admits the request if the tenant's counter for the current
// window is below limit, incrementing it. A rejected request does not
// increment the counter. Counter-store failures admit the request.
//
// The read and the increment are separate store calls, so the limit is
// approximate under concurrency: a burst of simultaneous requests may all
// read a count below limit and be admitted, overshooting it. Every
// admission is still counted.
func (e *Enforcer) CheckMinuteRate(ctx context.Context, tenantID string, limit int64) (Decision, error) {
	key := cache.RateKey(tenantID, "minute")
	log := logging.FromContext(ctx, e.logger).With("tenant_id", tenantID)

	current, err := e.counters.Get(ctx, key)
	if err != nil {
		return e.failOpen(log, limit, err), nil
	}

	if current >= limit {
		e.metrics.RecordCheck("minute", false)
		log.Debug("rate limit exceeded", "current", current, "limit", limit)
		return Decision{Admitted: false, Remaining: 0, Limit: limit},
			&LimitError{TenantID: tenantID, Limit: limit, Err: ErrRateLimitExceeded}
	}

	count, err := e.counters.Incr(ctx, key, e.config.Window)
	if err != nil {
		return e.failOpen(log, limit, err), nil
	}

	e.metrics.RecordCheck("minute", true)
	return Decision{Admitted: true, Remaining: max(0, limit-count), Limit: limit}, nil
}

func (e *Enforcer) failOpen(log *slog.Logger, limit int64, err error) Decision {
	e.metrics.RecordFailOpen()
	e.metrics.RecordCheck("minute", true)
	log.Error("counter store unavailable, admitting request", "error", err)
	return Decision{Admitted: true, Remaining: limit, Limit: limit}
}

// CheckMonthlyQuota rejects tenants whose persisted usage is at or above
// their monthly limit.
func (e *Enforcer) CheckMonthlyQuota(t *tenant.Tenant) (Decision, error) {
	if t.MonthlyUsage >= t.MonthlyLimit {
		e.metrics.RecordCheck("monthly", false)
		return Decision{Admitted: false, Remaining: 0, Limit: t.MonthlyLimit},
			&LimitError{TenantID: t.ID, Limit: t.MonthlyLimit, Err: ErrQuotaExceeded}
	}

	e.metrics.RecordCheck("monthly", true)
	return Decision{Admitted: true, Remaining: t.MonthlyLimit - t.MonthlyUsage, Limit: t.MonthlyLimit}, nil
}

// TrackMonthlyUsageAsync increments the tenant's persisted monthly usage in
// the background. Failures are logged and never retried.
func (e *Enforcer) TrackMonthlyUsageAsync(tenantID string) {
	if e.usage == nil {
		return
	}

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.config.UsageTimeout)
		defer cancel()

		err := e.usage.IncrementMonthlyUsage(ctx, tenantID)
		e.metrics.RecordUsageUpdate(err)
		if err != nil {
			e.logger.Warn("failed to track monthly usage", "tenant_id", tenantID, "error", err)
		}
	}()
}

// Admit runs the monthly check, then the minute check, and tracks usage for
// admitted requests. The returned error is a *LimitError when the request
// is rejected.
func (e *Enforcer) Admit(ctx context.Context, t *tenant.Tenant) (Decision, error) {
	if t == nil {
		return Decision{}, fmt.Errorf("tenant cannot be nil")
	}

	monthly, err := e.CheckMonthlyQuota(t)
	if err != nil {
		e.recordRejection(t.ID, "quota.monthly_exceeded", err)
		return monthly, err
	}

	minute, err := e.CheckMinuteRate(ctx, t.ID, t.PerMinuteLimit)
	if err != nil {
		e.recordRejection(t.ID, "quota.rate_exceeded", err)
		return minute, err
	}

	e.TrackMonthlyUsageAsync(t.ID)
	return minute, nil
}

// recordRejection writes an audit record for a rejected request in the
// background.
func (e *Enforcer) recordRejection(tenantID, action string, reason error) {
	if e.config.Audit == nil {
		return
	}

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.config.UsageTimeout)
		defer cancel()

		record := audit.NewRecord(tenantID, action, "quota", reason.Error())
		if err := e.config.Audit.Insert(ctx, record); err != nil {
			e.logger.Warn("failed to write audit record", "tenant_id", tenantID, "error", err)
		}
	}()
}

// Wait blocks until all background writes have finished.
func (e *Enforcer) Wait() {
	e.inflight.Wait()
}
