// Package health serves liveness, readiness and version endpoints for the
// tollgate daemon.
//
// Components register checks on a Checker; /ready runs them concurrently
// and answers 503 when any fails or times out. /health answers 200 as long
// as the process is serving.
//
//	checker := health.New(5 * time.Second)
//	checker.Register("scheduler", func(ctx context.Context) error { ... })
//	health.Mount(mux, checker, health.VersionInfo{Version: version})
package health
