// Package maintenance runs tollgate's periodic jobs.
//
// # Jobs
//
//   - monthly-reset: ResetExecutor zeroes every active tenant's monthly
//     usage, one tenant at a time, retrying each tenant a bounded number
//     of times. A tenant that keeps failing is recorded in the result and
//     the run continues. Only a failure to list tenants aborts a run.
//   - audit-cleanup: Cleaner deletes audit records older than the
//     retention window in one bulk delete.
//
// Both jobs report their results through a Notifier.
//
// # Scheduling
//
// Scheduler registers both jobs with github.com/robfig/cron/v3:
//
//	"0 0 1 * *"  monthly reset, midnight on the first of the month
//	"0 H * * *"  cleanup, daily at the configured hour H
//
// The cleanup hour is read when the scheduler starts; after changing it
// through UpdateRetentionConfig, call Restart. Status projects the next
// firing for these two schedule shapes only; other expressions are shown
// as a description.
//
// # Limitations
//
// Retention settings and scheduler state live in memory and revert to
// configured defaults on restart. The per-tenant retry loop has no overall
// deadline, so an unresponsive store stalls a reset run. Running several
// processes runs each job once per process.
package maintenance
