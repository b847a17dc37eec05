// Package logging configures structured logging for tollgate.
//
// # Overview
//
// The package wraps log/slog:
//   - JSON or text output at a configurable level
//   - Redaction of credentials (passwords, DSNs, webhook tokens)
//   - Context helpers carrying tenant, job and run identifiers
//
// Components do not hold a Logger. They derive one from the process default:
//
//	logger := slog.Default().With("component", "maintenance.scheduler")
//
// and the entrypoint installs the configured handler once:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	logger.SetDefault()
//
// # Context fields
//
//	ctx = logging.WithJob(ctx, "monthly-reset")
//	ctx = logging.WithRunID(ctx, runID)
//	logging.FromContext(ctx, logger).Info("run started")  // includes job and run_id
package logging
