package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/tollgate/pkg/cli"
	"mercator-hq/tollgate/pkg/maintenance"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset every active tenant's monthly usage now",
	Long: `Run the monthly usage reset once, outside its schedule.

Tenants that still fail after the configured attempts are listed and the
command exits with status 3. Resetting is idempotent, so a failed run can be
repeated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "reset", func(a *app) error {
			result, err := a.scheduler.TriggerMonthlyReset(cmd.Context())
			if result != nil {
				if renderErr := render(cmd, resetReport{result}); renderErr != nil {
					return renderErr
				}
			}
			if err != nil {
				return err
			}
			if result.FailureCount > 0 {
				return &cli.PartialFailureError{Job: "monthly reset", Failed: result.FailureCount, Total: result.TotalTenants}
			}
			return nil
		})
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete audit records older than the retention window now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "cleanup", func(a *app) error {
			result, err := a.scheduler.TriggerCleanup(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, cleanupReport{
				CleanupResult: result,
				Retention:     a.cleaner.RetentionConfig(),
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(cleanupCmd)
}

type resetReport struct {
	*maintenance.ResetJobResult
}

func (r resetReport) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Monthly reset %s\n", r.RunID)
	if r.Fault != "" {
		_, err := fmt.Fprintf(w, "✗ Aborted: %s\n", r.Fault)
		return err
	}
	fmt.Fprintf(w, "  Tenants:   %d\n", r.TotalTenants)
	fmt.Fprintf(w, "  Succeeded: %d\n", r.SuccessCount)
	fmt.Fprintf(w, "  Failed:    %d\n", r.FailureCount)
	fmt.Fprintf(w, "  Duration:  %s\n", time.Duration(r.DurationMs)*time.Millisecond)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  ✗ %s: %s\n", e.TenantID, e.Error)
	}
	return nil
}

type cleanupReport struct {
	maintenance.CleanupResult
	Retention maintenance.RetentionConfig `json:"retention"`
}

func (r cleanupReport) WriteText(w io.Writer) error {
	if !r.Retention.CleanupEnabled {
		_, err := fmt.Fprintln(w, "Audit cleanup is disabled")
		return err
	}
	_, err := fmt.Fprintf(w, "Deleted %d audit records older than %s (%d day retention)\n",
		r.DeletedRecords, r.CutoffDate.Format(time.RFC3339), r.Retention.RetentionDays)
	return err
}
