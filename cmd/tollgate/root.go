package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/tollgate/pkg/cli"
	"mercator-hq/tollgate/pkg/config"
	"mercator-hq/tollgate/pkg/secrets"
	"mercator-hq/tollgate/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	logLevel     string
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tollgate",
		Short: "Tollgate - tenant quota enforcement and scheduled maintenance",
		Long: `Tollgate enforces per-minute rate limits and monthly quotas for tenants,
and runs the scheduled maintenance jobs behind them:

  - Monthly usage reset for every active tenant
  - Audit log retention cleanup
  - Job result notifications to a webhook

Configuration is read from a YAML file (--config) and TOLLGATE_* environment
variables. Without a file the built-in defaults are used.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("TOLLGATE_CONFIG"), "config file path")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

// loadConfig loads the configuration, installs it as the process config and
// configures the default logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}

	logCfg := cfg.Telemetry.Logging
	logger, err := logging.New(logging.Config{
		Level:         logCfg.Level,
		Format:        logCfg.Format,
		AddSource:     logCfg.AddSource,
		RedactSecrets: logCfg.RedactSecrets == nil || *logCfg.RedactSecrets,
		Writer:        os.Stderr,
	})
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	logger.SetDefault()

	if err := resolveSecrets(context.Background(), cfg); err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}

	config.SetConfig(cfg)
	return cfg, nil
}

// resolveSecrets replaces ${secret:name} references in credential fields
// and validates the result.
func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	sources := []secrets.Source{secrets.NewEnvSource(cfg.Secrets.EnvPrefix)}
	if cfg.Secrets.Dir != "" {
		sources = append(sources, secrets.NewFileSource(cfg.Secrets.Dir))
	}

	err := secrets.NewResolver(sources...).ResolveFields(ctx,
		&cfg.Storage.Tenants.Postgres.Password,
		&cfg.Cache.Redis.Password,
		&cfg.Notifications.WebhookURL,
	)
	if err != nil {
		return err
	}
	return config.Validate(cfg)
}

// render writes a command result in the selected output format.
func render(cmd *cobra.Command, data any) error {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}
