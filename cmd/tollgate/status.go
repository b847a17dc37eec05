package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/tollgate/pkg/maintenance"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the maintenance job schedules and their next executions",
	Long: `Show each maintenance job with its schedule, the projected next execution
and the active retention policy, as computed from the configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "status", func(a *app) error {
			return render(cmd, statusReport{
				Scheduler: a.scheduler.Status(),
				Health:    a.scheduler.HealthCheck(),
				Retention: a.cleaner.RetentionConfig(),
				Enabled:   a.config.Scheduler.IsEnabled(),
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusReport struct {
	Scheduler maintenance.SchedulerStatus `json:"scheduler"`
	Health    maintenance.Health          `json:"health"`
	Retention maintenance.RetentionConfig `json:"retention"`

	// Enabled reports whether `tollgate run` starts the scheduler.
	Enabled bool `json:"enabled"`
}

func (r statusReport) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Scheduler enabled: %t\n", r.Enabled)
	fmt.Fprintf(w, "Retention: %d days, cleanup enabled: %t, cleanup hour: %02d:00\n\n",
		r.Retention.RetentionDays, r.Retention.CleanupEnabled, r.Retention.CleanupHour)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tSCHEDULE\tNEXT EXECUTION\tLAST EXECUTION")
	for _, job := range r.Scheduler.Jobs {
		next := job.NextExecutionDescription
		if job.NextExecution != nil {
			next = job.NextExecution.Format(time.RFC3339)
		}
		last := "never"
		if job.LastExecution != nil {
			last = job.LastExecution.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", job.Name, job.Schedule, next, last)
	}
	return tw.Flush()
}
