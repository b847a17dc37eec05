// Package tracing configures OpenTelemetry for Tollgate.
//
// New installs an SDK tracer provider, exporting over OTLP gRPC, as the
// global provider. Job packages create spans with otel.Tracer and need no
// reference to this package; when tracing is disabled their spans are
// no-ops.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// Inject propagates the W3C trace context into outgoing webhook requests.
package tracing
