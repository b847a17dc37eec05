package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job names.
const (
	JobMonthlyReset = "monthly-reset"
	JobAuditCleanup = "audit-cleanup"
)

// ErrJobRunning is returned by manual triggers while the job is executing.
var ErrJobRunning = errors.New("job is already running")

// ErrShuttingDown is returned by Start and manual triggers after Shutdown.
var ErrShuttingDown = errors.New("scheduler is shutting down")

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Location is the time zone schedules are evaluated in.
	// Default: time.Local
	Location *time.Location

	// MonthlyResetSchedule overrides the monthly reset cron expression.
	// Default: MonthlyResetSchedule
	MonthlyResetSchedule string

	// CleanupSchedule overrides the cleanup cron expression. When empty the
	// schedule is derived from the cleaner's CleanupHour at each Start.
	CleanupSchedule string

	// Metrics receives scheduler metrics. Default: unregistered collectors.
	Metrics *Metrics
}

// JobStatus is a read-only projection of one scheduled job.
type JobStatus struct {
	Name string `json:"name"`

	// Enabled is false for a job that is registered but does nothing.
	Enabled bool `json:"enabled"`

	// Running reports whether the job is registered with a running scheduler.
	Running bool `json:"running"`

	// Executing reports whether a run is in progress.
	Executing bool `json:"executing"`

	LastExecution *time.Time `json:"last_execution,omitempty"`

	// NextExecution is nil when the schedule cannot be projected; see
	// NextExecutionDescription.
	NextExecution            *time.Time `json:"next_execution,omitempty"`
	NextExecutionDescription string     `json:"next_execution_description"`

	Schedule string         `json:"schedule"`
	Config   map[string]any `json:"config"`
}

// SchedulerStatus describes the scheduler and its jobs.
type SchedulerStatus struct {
	Running   bool        `json:"running"`
	StartedAt *time.Time  `json:"started_at,omitempty"`
	Jobs      []JobStatus `json:"jobs"`
}

// JobCounts summarizes the registered jobs.
type JobCounts struct {
	Total   int `json:"total"`
	Enabled int `json:"enabled"`
	Running int `json:"running"`
}

// Health is the scheduler's health report.
type Health struct {
	Healthy   bool      `json:"healthy"`
	UptimeMs  int64     `json:"uptime_ms"`
	JobCounts JobCounts `json:"job_counts"`
}

// jobState tracks one job across scheduler restarts.
type jobState struct {
	executing     bool
	lastExecution *time.Time
	schedule      string
}

// Scheduler runs the monthly reset and the audit cleanup on their cron
// schedules. It is either stopped or running; it starts stopped.
//
// A job never overlaps with itself: a firing that arrives while the previous
// run is still executing is skipped.
type Scheduler struct {
	reset   *ResetExecutor
	cleaner *Cleaner
	config  SchedulerConfig
	metrics *Metrics
	logger  *slog.Logger

	// now returns the current time; replaced in tests.
	now func() time.Time

	mu        sync.Mutex
	cron      *cron.Cron
	running   bool
	startedAt time.Time
	jobs      map[string]*jobState
	closing   bool
	inflight  sync.WaitGroup
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(reset *ResetExecutor, cleaner *Cleaner, cfg SchedulerConfig) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MonthlyResetSchedule == "" {
		cfg.MonthlyResetSchedule = MonthlyResetSchedule
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}

	return &Scheduler{
		reset:   reset,
		cleaner: cleaner,
		config:  cfg,
		metrics: cfg.Metrics,
		logger:  slog.Default().With("component", "maintenance.scheduler"),
		now:     time.Now,
		jobs: map[string]*jobState{
			JobMonthlyReset: {},
			JobAuditCleanup: {},
		},
	}
}

// Start registers both jobs on a fresh cron runner and starts it. Starting a
// running scheduler logs a warning and does nothing. After Shutdown it
// returns ErrShuttingDown.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return ErrShuttingDown
	}

	if s.running {
		s.logger.Warn("scheduler already running")
		return nil
	}

	c := cron.New(
		cron.WithLocation(s.config.Location),
		cron.WithLogger(cronLogger{s.logger}),
		cron.WithChain(
			cron.Recover(cronLogger{s.logger}),
			cron.SkipIfStillRunning(cronLogger{s.logger}),
		),
	)

	schedules := map[string]string{
		JobMonthlyReset: s.config.MonthlyResetSchedule,
		JobAuditCleanup: s.cleanupSchedule(),
	}

	for _, name := range []string{JobMonthlyReset, JobAuditCleanup} {
		name := name
		if _, err := c.AddFunc(schedules[name], func() { s.runScheduled(name) }); err != nil {
			return fmt.Errorf("invalid cron schedule %q for %s: %w", schedules[name], name, err)
		}
		s.jobs[name].schedule = schedules[name]
	}

	c.Start()
	s.cron = c
	s.running = true
	s.startedAt = s.now()
	s.metrics.schedulerRunning.Set(1)

	s.logger.Info("scheduler started",
		"monthly_reset", schedules[JobMonthlyReset],
		"audit_cleanup", schedules[JobAuditCleanup],
		"location", s.config.Location.String(),
	)
	return nil
}

// Stop prevents future firings. It does not wait for in-flight runs; use
// Shutdown for that. Stopping a stopped scheduler logs a warning and does
// nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Warn("scheduler not running")
		return
	}

	s.cron.Stop()
	s.cron = nil
	s.running = false
	s.startedAt = time.Time{}
	s.metrics.schedulerRunning.Set(0)

	s.logger.Info("scheduler stopped")
}

// Restart stops and starts the scheduler, picking up a changed cleanup hour.
func (s *Scheduler) Restart() error {
	s.Stop()
	return s.Start()
}

// Shutdown stops the scheduler, rejects further manual triggers and waits
// for in-flight runs until ctx is done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	running := s.running
	s.closing = true
	s.mu.Unlock()

	if running {
		s.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TriggerMonthlyReset runs the monthly reset now.
func (s *Scheduler) TriggerMonthlyReset(ctx context.Context) (*ResetJobResult, error) {
	var (
		result *ResetJobResult
		err    error
	)
	if runErr := s.run(JobMonthlyReset, func() {
		result, err = s.reset.ExecuteMonthlyReset(ctx)
	}); runErr != nil {
		return nil, runErr
	}
	return result, err
}

// TriggerCleanup runs the audit cleanup now.
func (s *Scheduler) TriggerCleanup(ctx context.Context) (CleanupResult, error) {
	var (
		result CleanupResult
		err    error
	)
	if runErr := s.run(JobAuditCleanup, func() {
		result, err = s.cleaner.CleanupAndReport(ctx)
	}); runErr != nil {
		return CleanupResult{}, runErr
	}
	return result, err
}

// runScheduled is the cron entry point. Job errors are logged, never
// propagated.
func (s *Scheduler) runScheduled(name string) {
	ctx := context.Background()

	var err error
	runErr := s.run(name, func() {
		switch name {
		case JobMonthlyReset:
			_, err = s.reset.ExecuteMonthlyReset(ctx)
		case JobAuditCleanup:
			_, err = s.cleaner.CleanupAndReport(ctx)
		}
	})
	if runErr != nil {
		s.logger.Warn("scheduled run skipped", "job", name, "reason", runErr)
		return
	}
	if err != nil {
		s.logger.Error("scheduled job failed", "job", name, "error", err)
	}
}

// run executes fn as job name, refusing to start a second concurrent run.
func (s *Scheduler) run(name string, fn func()) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return ErrShuttingDown
	}
	job := s.jobs[name]
	if job.executing {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", name, ErrJobRunning)
	}
	job.executing = true
	s.inflight.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		job.executing = false
		now := s.now()
		job.lastExecution = &now
		s.mu.Unlock()
		s.inflight.Done()
	}()

	fn()
	return nil
}

// Status returns the scheduler state and a projection of each job.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().In(s.config.Location)
	status := SchedulerStatus{Running: s.running}
	if s.running {
		started := s.startedAt
		status.StartedAt = &started
	}

	retention := s.cleaner.RetentionConfig()
	reset := s.reset.config

	for _, name := range []string{JobMonthlyReset, JobAuditCleanup} {
		job := s.jobs[name]

		schedule := s.scheduleFor(name)
		if s.running {
			schedule = job.schedule
		}

		js := JobStatus{
			Name:      name,
			Enabled:   true,
			Running:   s.running,
			Executing: job.executing,
			Schedule:  schedule,
		}
		if job.lastExecution != nil {
			last := *job.lastExecution
			js.LastExecution = &last
		}
		if s.running {
			js.NextExecution, js.NextExecutionDescription = NextExecution(schedule, now)
		} else {
			_, js.NextExecutionDescription = NextExecution(schedule, now)
		}

		switch name {
		case JobMonthlyReset:
			js.Config = map[string]any{
				"page_size":      reset.PageSize,
				"max_attempts":   reset.MaxAttempts,
				"retry_delay_ms": reset.RetryDelay.Milliseconds(),
			}
		case JobAuditCleanup:
			js.Enabled = retention.CleanupEnabled
			js.Config = map[string]any{
				"retention_days":  retention.RetentionDays,
				"cleanup_enabled": retention.CleanupEnabled,
				"cleanup_hour":    retention.CleanupHour,
			}
			if retention.LastDeletedCount != nil {
				js.Config["last_deleted_count"] = *retention.LastDeletedCount
			}
		}

		status.Jobs = append(status.Jobs, js)
	}

	return status
}

// HealthCheck reports the scheduler as healthy while it is running.
func (s *Scheduler) HealthCheck() Health {
	status := s.Status()

	h := Health{Healthy: status.Running}
	if status.StartedAt != nil {
		h.UptimeMs = s.now().Sub(*status.StartedAt).Milliseconds()
	}

	for _, job := range status.Jobs {
		h.JobCounts.Total++
		if job.Enabled {
			h.JobCounts.Enabled++
		}
		if job.Running {
			h.JobCounts.Running++
		}
	}
	return h
}

// cleanupSchedule returns the cleanup cron expression.
func (s *Scheduler) cleanupSchedule() string {
	if s.config.CleanupSchedule != "" {
		return s.config.CleanupSchedule
	}
	return DailySchedule(s.cleaner.RetentionConfig().CleanupHour)
}

func (s *Scheduler) scheduleFor(name string) string {
	if name == JobMonthlyReset {
		return s.config.MonthlyResetSchedule
	}
	return s.cleanupSchedule()
}

// cronLogger adapts slog to cron.Logger. Cron's routine messages are
// demoted to debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
