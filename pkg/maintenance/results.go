package maintenance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"mercator-hq/tollgate/pkg/notify"
)

// maxListedFailures caps the tenant IDs listed in a reset notification.
const maxListedFailures = 10

// TenantError records a tenant whose reset failed after every attempt.
type TenantError struct {
	TenantID string `json:"tenant_id"`
	Error    string `json:"error"`
}

// ResetJobResult summarizes one monthly reset run.
//
// SuccessCount+FailureCount always equals TotalTenants, and Success is true
// exactly when FailureCount is zero.
type ResetJobResult struct {
	RunID        string        `json:"run_id"`
	Timestamp    time.Time     `json:"timestamp"`
	TotalTenants int           `json:"total_tenants"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	Errors       []TenantError `json:"errors"`
	DurationMs   int64         `json:"duration_ms"`
	Success      bool          `json:"success"`

	// Fault is set when the run was aborted before any tenant was reset.
	Fault string `json:"fault,omitempty"`
}

// Notification implements notify.Source.
func (r *ResetJobResult) Notification() notify.Notification {
	n := notify.Notification{
		JobType:      notify.JobMonthlyReset,
		Timestamp:    r.Timestamp,
		Success:      r.Success,
		FailureCount: r.FailureCount,
	}

	if r.Fault != "" {
		// An aborted run counts as one failure.
		n.FailureCount = 1
		n.Summary = "Monthly usage reset aborted"
		n.Details = []notify.Field{
			{Title: "Error", Value: r.Fault},
			{Title: "Duration", Value: formatMs(r.DurationMs), Short: true},
		}
		return n
	}

	if r.Success {
		n.Summary = fmt.Sprintf("Monthly usage reset completed for %d tenants", r.TotalTenants)
	} else {
		n.Summary = fmt.Sprintf("Monthly usage reset completed with %d failures", r.FailureCount)
	}

	n.Details = []notify.Field{
		{Title: "Total tenants", Value: strconv.Itoa(r.TotalTenants), Short: true},
		{Title: "Succeeded", Value: strconv.Itoa(r.SuccessCount), Short: true},
		{Title: "Failed", Value: strconv.Itoa(r.FailureCount), Short: true},
		{Title: "Duration", Value: formatMs(r.DurationMs), Short: true},
	}

	if len(r.Errors) > 0 {
		ids := make([]string, 0, maxListedFailures)
		for i, e := range r.Errors {
			if i == maxListedFailures {
				ids = append(ids, fmt.Sprintf("and %d more", len(r.Errors)-maxListedFailures))
				break
			}
			ids = append(ids, e.TenantID)
		}
		n.Details = append(n.Details, notify.Field{Title: "Failed tenants", Value: strings.Join(ids, ", ")})
	}

	return n
}

// CleanupResult is the outcome of one retention cleanup.
type CleanupResult struct {
	DeletedRecords int64     `json:"deleted_records"`
	CutoffDate     time.Time `json:"cutoff_date"`
}

// CleanupOutcome pairs a cleanup result with the error, if any, for
// reporting.
type CleanupOutcome struct {
	Result        CleanupResult
	Err           error
	RetentionDays int
	Timestamp     time.Time
}

// Notification implements notify.Source.
func (o CleanupOutcome) Notification() notify.Notification {
	n := notify.Notification{
		JobType:   notify.JobAuditCleanup,
		Timestamp: o.Timestamp,
		Success:   o.Err == nil,
		Details: []notify.Field{
			{Title: "Retention days", Value: strconv.Itoa(o.RetentionDays), Short: true},
		},
	}

	if o.Err != nil {
		n.FailureCount = 1
		n.Summary = "Audit log cleanup failed"
		n.Details = append(n.Details, notify.Field{Title: "Error", Value: o.Err.Error()})
		return n
	}

	n.Summary = fmt.Sprintf("Audit log cleanup deleted %d records", o.Result.DeletedRecords)
	n.Details = append(n.Details,
		notify.Field{Title: "Deleted", Value: strconv.FormatInt(o.Result.DeletedRecords, 10), Short: true},
		notify.Field{Title: "Cutoff", Value: o.Result.CutoffDate.Format(time.RFC3339), Short: true},
	)
	return n
}

func formatMs(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}
