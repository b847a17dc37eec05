package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/tollgate/pkg/cli"
	"mercator-hq/tollgate/pkg/config"
	"mercator-hq/tollgate/pkg/telemetry/health"
	"mercator-hq/tollgate/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	dryRun        bool
	noWatch       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the maintenance scheduler",
	Long: `Start the maintenance scheduler and the operations listener.

The monthly usage reset and the audit cleanup run on their schedules until
SIGINT or SIGTERM, after which in-flight jobs get scheduler.shutdown_timeout
to finish. The operations listener serves /metrics, /health, /ready and
/version. Changes to the retention section of the config file are applied
without a restart.

Examples:
  # Start with default config
  tollgate run

  # Start with custom config
  tollgate run --config /etc/tollgate/config.yaml

  # Override the operations listen address
  tollgate run --listen 0.0.0.0:9090

  # Validate config without starting
  tollgate run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override operations listen address")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "do not reload the config file on change")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Telemetry.Metrics.ListenAddress = runFlags.listenAddress
	}

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer a.Close()

	var opsErr <-chan error
	if cfg.Telemetry.Metrics.IsEnabled() {
		srv, errCh, err := a.startOpsServer(cfg.Telemetry.Metrics)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		opsErr = errCh
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Scheduler.IsEnabled() {
		if err := a.scheduler.Start(); err != nil {
			return cli.NewCommandError("run", err)
		}
	} else {
		slog.Warn("scheduler disabled by configuration")
	}

	if cfgFile != "" && !runFlags.noWatch {
		watcher, err := config.NewWatcher(cfgFile, config.DefaultDebounceInterval)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer watcher.Stop()

		go func() {
			err := watcher.Watch(ctx, func(next *config.Config) {
				if err := a.applyRetention(next.Retention); err != nil {
					slog.Error("failed to apply reloaded retention config", "error", err)
				}
			})
			if err != nil {
				slog.Error("configuration watcher failed", "error", err)
			}
		}()
	}

	slog.Info("tollgate started",
		"version", Version,
		"scheduler_enabled", cfg.Scheduler.IsEnabled(),
		"tenant_backend", cfg.Storage.Tenants.Backend,
		"cache_backend", cfg.Cache.Backend,
	)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-opsErr:
		return cli.NewCommandError("run", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownTimeout)
	defer cancel()

	if err := a.scheduler.Shutdown(shutdownCtx); err != nil {
		slog.Error("scheduler shutdown incomplete", "error", err)
		return cli.NewCommandError("run", err)
	}

	slog.Info("tollgate stopped")
	return nil
}

// opsHandler routes the metrics and health endpoints.
func (a *app) opsHandler(metricsPath string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, metrics.Handler(a.registry))

	checker := health.New(5 * time.Second)
	if a.config.Scheduler.IsEnabled() {
		checker.Register("scheduler", func(ctx context.Context) error {
			if !a.scheduler.HealthCheck().Healthy {
				return errors.New("scheduler not running")
			}
			return nil
		})
	}
	checker.Register("counters", a.counters.Ping)
	health.Mount(mux, checker, health.VersionInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	})
	return mux
}

// startOpsServer serves opsHandler. Listen errors are returned immediately;
// later serve errors arrive on the channel.
func (a *app) startOpsServer(cfg config.MetricsConfig) (*http.Server, <-chan error, error) {
	ln, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddress, err)
	}

	srv := &http.Server{
		Handler:           a.opsHandler(cfg.Path),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("operations listener started",
		"address", ln.Addr().String(),
		"metrics_path", cfg.Path,
	)
	return srv, errCh, nil
}
