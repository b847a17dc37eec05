package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/tollgate/pkg/config"
)

func newTestTracer(t *testing.T, sampler string) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tr, err := NewWithExporter(&config.TracingConfig{
		Sampler:     sampler,
		SampleRatio: 1,
		ServiceName: "tollgate-test",
	}, exporter, "test")
	if err != nil {
		t.Fatalf("NewWithExporter failed: %v", err)
	}
	t.Cleanup(func() { tr.Shutdown(context.Background()) })
	return tr, exporter
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.TracingConfig
		wantErr bool
		enabled bool
	}{
		{"nil config", nil, true, false},
		{"disabled", &config.TracingConfig{Enabled: false}, false, false},
		{"unsupported exporter", &config.TracingConfig{Enabled: true, Exporter: "zipkin", Sampler: "always"}, true, false},
		{"bad sampler", &config.TracingConfig{Enabled: true, Exporter: "otlp", Endpoint: "localhost:4317", Sampler: "often"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(tt.cfg, "test")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tr.Enabled() != tt.enabled {
				t.Errorf("Enabled() = %v, want %v", tr.Enabled(), tt.enabled)
			}
			if err := tr.Shutdown(context.Background()); err != nil {
				t.Errorf("Shutdown failed: %v", err)
			}
		})
	}
}

func TestNew_DisabledStartsNoopSpans(t *testing.T) {
	tr, err := New(&config.TracingConfig{}, "test")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, span := tr.Start(context.Background(), "job")
	defer span.End()

	if span.IsRecording() {
		t.Error("disabled tracer produced a recording span")
	}
	if TraceID(ctx) != "" {
		t.Error("disabled tracer produced a trace ID")
	}
}

func TestNewWithExporter_ExportsGlobalSpans(t *testing.T) {
	tr, exporter := newTestTracer(t, SamplerAlways)

	// Packages obtain tracers from the global provider
	ctx, span := otel.Tracer("mercator-hq/tollgate/pkg/maintenance").Start(context.Background(), "maintenance.monthly_reset")
	if TraceID(ctx) == "" {
		t.Error("expected a trace ID inside a sampled span")
	}
	SetStatus(span, errors.New("listing failed"))
	span.End()

	if err := tr.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "maintenance.monthly_reset" {
		t.Errorf("unexpected span name %q", spans[0].Name)
	}
	if spans[0].Status.Code != codes.Error || spans[0].Status.Description != "listing failed" {
		t.Errorf("unexpected status %+v", spans[0].Status)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected the error to be recorded as an event, got %d events", len(spans[0].Events))
	}
}

func TestNewWithExporter_NeverSampler(t *testing.T) {
	tr, exporter := newTestTracer(t, SamplerNever)

	_, span := tr.Start(context.Background(), "job")
	span.End()
	tr.ForceFlush(context.Background())

	if n := len(exporter.GetSpans()); n != 0 {
		t.Errorf("expected no exported spans, got %d", n)
	}
}

func TestSetStatus_Ok(t *testing.T) {
	tr, exporter := newTestTracer(t, SamplerAlways)

	_, span := tr.Start(context.Background(), "job")
	SetStatus(span, nil)
	span.End()
	tr.ForceFlush(context.Background())

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Status.Code != codes.Ok {
		t.Errorf("expected Ok status, got %+v", spans)
	}
}

func TestInjectExtract(t *testing.T) {
	tr, _ := newTestTracer(t, SamplerAlways)

	ctx, span := tr.Start(context.Background(), "notify.webhook")
	defer span.End()

	headers := http.Header{}
	Inject(ctx, headers)
	if headers.Get("traceparent") == "" {
		t.Fatal("expected traceparent header")
	}

	extracted := Extract(context.Background(), headers)
	if got, want := TraceID(extracted), TraceID(ctx); got != want {
		t.Errorf("extracted trace ID %q, want %q", got, want)
	}
}
