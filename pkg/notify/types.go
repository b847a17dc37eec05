package notify

import (
	"fmt"
	"time"
)

// JobType names the job a notification reports on.
type JobType string

const (
	// JobMonthlyReset is the monthly usage reset.
	JobMonthlyReset JobType = "monthly-reset"

	// JobAuditCleanup is the audit log retention cleanup.
	JobAuditCleanup JobType = "audit-cleanup"

	// JobGeneric is any other job.
	JobGeneric JobType = "generic"
)

// Field is a titled value shown with a notification.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Notification is the job-independent shape delivered to operators.
type Notification struct {
	JobType   JobType   `json:"job_type"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Summary   string    `json:"summary"`
	Details   []Field   `json:"details"`

	// FailureCount is compared against the dispatcher's threshold for
	// failed results.
	FailureCount int `json:"failure_count"`
}

// Source is a job result that can be reported.
type Source interface {
	Notification() Notification
}

// GenericResult reports a job that has no dedicated result type.
type GenericResult struct {
	Job       string
	Success   bool
	Message   string
	Err       error
	Timestamp time.Time
}

// Notification implements Source.
func (r GenericResult) Notification() Notification {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	n := Notification{
		JobType:   JobGeneric,
		Timestamp: ts,
		Success:   r.Success,
		Details: []Field{
			{Title: "Job", Value: r.Job, Short: true},
		},
	}

	if r.Success {
		n.Summary = fmt.Sprintf("Job %s completed", r.Job)
	} else {
		n.Summary = fmt.Sprintf("Job %s failed", r.Job)
		n.FailureCount = 1
	}
	if r.Message != "" {
		n.Details = append(n.Details, Field{Title: "Message", Value: r.Message})
	}
	if r.Err != nil {
		n.Details = append(n.Details, Field{Title: "Error", Value: r.Err.Error()})
	}
	return n
}

// DeliveryError describes a failed webhook delivery.
type DeliveryError struct {
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("webhook delivery failed: %v", e.Cause)
	}
	return fmt.Sprintf("webhook delivery failed: status %d", e.StatusCode)
}

// Unwrap returns the underlying cause.
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}
