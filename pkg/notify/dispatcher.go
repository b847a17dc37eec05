package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/tollgate/pkg/telemetry/tracing"
)

// Config configures a Dispatcher.
type Config struct {
	// Enabled turns on external delivery. Notifications are always logged.
	Enabled bool

	// WebhookURL receives notifications as JSON POST requests.
	WebhookURL string

	// Timeout bounds each webhook request.
	// Default: 10 seconds
	Timeout time.Duration

	// MinFailureThreshold is the failure count at which failed results
	// are delivered.
	// Default: 1
	MinFailureThreshold int

	// EmailEnabled and EmailRecipients declare an email channel. No email
	// transport is built in: when enabled, each notification is logged with
	// its recipient count and nothing is sent.
	EmailEnabled    bool
	EmailRecipients []string

	// HTTPClient overrides the pooled client.
	HTTPClient *http.Client

	// Registerer receives the dispatcher's metrics. Nil leaves the
	// collectors unregistered.
	Registerer prometheus.Registerer
}

// Dispatcher logs job notifications and delivers them to a webhook.
type Dispatcher struct {
	config  Config
	client  *http.Client
	metrics *Metrics
	logger  *slog.Logger
}

// webhookPayload is the JSON body posted to the webhook.
type webhookPayload struct {
	Text   string  `json:"text"`
	Fields []Field `json:"fields"`
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MinFailureThreshold <= 0 {
		cfg.MinFailureThreshold = 1
	}

	client := cfg.HTTPClient
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
		client.Timeout = cfg.Timeout
	}

	return &Dispatcher{
		config:  cfg,
		client:  client,
		metrics: NewMetrics(cfg.Registerer),
		logger:  slog.Default().With("component", "notify.dispatcher"),
	}
}

// Dispatch reports the outcome of a job. It never fails: delivery errors are
// logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, source Source) {
	n := source.Notification()

	d.metrics.dispatched.WithLabelValues(string(n.JobType), strconv.FormatBool(n.Success)).Inc()
	d.log(ctx, n)

	if !d.ShouldSend(n) {
		return
	}

	if d.config.WebhookURL != "" {
		if err := d.sendWebhook(ctx, n); err != nil {
			d.metrics.deliveries.WithLabelValues("error").Inc()
			d.logger.Error("webhook notification failed",
				"job_type", n.JobType,
				"error", err,
			)
		} else {
			d.metrics.deliveries.WithLabelValues("success").Inc()
		}
	}

	if d.config.EmailEnabled {
		d.logger.Info("email notification skipped: no email transport configured",
			"job_type", n.JobType,
			"recipients", len(d.config.EmailRecipients),
		)
	}
}

// ShouldSend reports whether n is delivered externally: delivery must be
// enabled, and the result must either be successful or have at least
// MinFailureThreshold failures.
func (d *Dispatcher) ShouldSend(n Notification) bool {
	if !d.config.Enabled {
		return false
	}
	return n.Success || n.FailureCount >= d.config.MinFailureThreshold
}

func (d *Dispatcher) log(ctx context.Context, n Notification) {
	attrs := []any{
		"job_type", n.JobType,
		"success", n.Success,
		"summary", n.Summary,
		"failure_count", n.FailureCount,
	}
	for _, f := range n.Details {
		attrs = append(attrs, f.Title, f.Value)
	}

	if n.Success {
		d.logger.InfoContext(ctx, "job notification", attrs...)
	} else {
		d.logger.ErrorContext(ctx, "job notification", attrs...)
	}
}

func (d *Dispatcher) sendWebhook(ctx context.Context, n Notification) error {
	body, err := json.Marshal(webhookPayload{Text: n.Summary, Fields: n.Details})
	if err != nil {
		return &DeliveryError{Cause: fmt.Errorf("failed to encode payload: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	tracing.Inject(ctx, req.Header)

	resp, err := d.client.Do(req)
	if err != nil {
		return &DeliveryError{Cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{StatusCode: resp.StatusCode}
	}
	return nil
}
