package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mercator-hq/tollgate/pkg/cli"
	"mercator-hq/tollgate/pkg/quota"
	"mercator-hq/tollgate/pkg/tenant"
)

var tenantFlags struct {
	limit          int
	tier           string
	monthlyLimit   int64
	perMinuteLimit int64
	inactive       bool
}

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Manage tenants and check their quotas",
}

var tenantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active tenants, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "tenants list", func(a *app) error {
			tenants, err := a.tenants.ListActive(cmd.Context(), tenantFlags.limit)
			if err != nil {
				return err
			}
			return render(cmd, tenantList(tenants))
		})
	},
}

var tenantsSetCmd = &cobra.Command{
	Use:   "set <tenant-id>",
	Short: "Create or update a tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "tenants set", func(a *app) error {
			t, err := a.tenants.Get(cmd.Context(), args[0])
			if errors.Is(err, tenant.ErrNotFound) {
				t = &tenant.Tenant{ID: args[0]}
			} else if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("tier") {
				t.Tier = tenantFlags.tier
			}
			if flags.Changed("monthly-limit") {
				t.MonthlyLimit = tenantFlags.monthlyLimit
			}
			if flags.Changed("per-minute-limit") {
				t.PerMinuteLimit = tenantFlags.perMinuteLimit
			}
			t.IsActive = !tenantFlags.inactive

			if err := a.tenants.Upsert(cmd.Context(), t); err != nil {
				return err
			}
			return render(cmd, tenantList{t})
		})
	},
}

var tenantsAdmitCmd = &cobra.Command{
	Use:   "admit <tenant-id>",
	Short: "Run one request through the tenant's quota checks",
	Long: `Run one request through the monthly quota and per-minute rate checks, as
the gateway would. An admitted request counts against both limits.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "tenants admit", func(a *app) error {
			t, err := a.tenants.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			decision, err := a.enforcer.Admit(cmd.Context(), t)
			var limitErr *quota.LimitError
			if err != nil && !errors.As(err, &limitErr) {
				return err
			}
			report := admitReport{TenantID: t.ID, Decision: decision}
			if limitErr != nil {
				report.Reason = limitErr.Err.Error()
			}
			return render(cmd, report)
		})
	},
}

func init() {
	rootCmd.AddCommand(tenantsCmd)
	tenantsCmd.AddCommand(tenantsListCmd, tenantsSetCmd, tenantsAdmitCmd)

	tenantsListCmd.Flags().IntVar(&tenantFlags.limit, "limit", 100, "maximum number of tenants to list")

	tenantsSetCmd.Flags().StringVar(&tenantFlags.tier, "tier", "", "tier label")
	tenantsSetCmd.Flags().Int64Var(&tenantFlags.monthlyLimit, "monthly-limit", 0, "monthly request quota")
	tenantsSetCmd.Flags().Int64Var(&tenantFlags.perMinuteLimit, "per-minute-limit", 0, "per-minute request limit")
	tenantsSetCmd.Flags().BoolVar(&tenantFlags.inactive, "inactive", false, "mark the tenant inactive")
}

// withApp loads the configuration, builds the app and runs fn with it.
func withApp(cmd *cobra.Command, name string, fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return cli.NewCommandError(name, err)
	}
	defer a.Close()

	if err := fn(a); err != nil {
		return cli.NewCommandError(name, err)
	}
	return nil
}

type tenantList []*tenant.Tenant

func (l tenantList) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIER\tMONTHLY USAGE\tMONTHLY LIMIT\tPER MINUTE\tACTIVE")
	for _, t := range l {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%t\n",
			t.ID, t.Tier, t.MonthlyUsage, t.MonthlyLimit, t.PerMinuteLimit, t.IsActive)
	}
	return tw.Flush()
}

type admitReport struct {
	TenantID string `json:"tenant_id"`
	quota.Decision
	Reason string `json:"reason,omitempty"`
}

func (r admitReport) WriteText(w io.Writer) error {
	if r.Admitted {
		_, err := fmt.Fprintf(w, "✓ %s admitted (%d of %d remaining)\n", r.TenantID, r.Remaining, r.Limit)
		return err
	}
	_, err := fmt.Fprintf(w, "✗ %s rejected: %s (limit %d)\n", r.TenantID, r.Reason, r.Limit)
	return err
}
