// Package cli holds the budgetctl commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-budget/internal/costcenters"
	"github.com/odyssey-erp/odyssey-budget/internal/fiscalyears"
)

var version = "dev"

// Deps are the collaborators a command may need. Fields a command does not
// use may be nil.
type Deps struct {
	Migrate     func() error
	FiscalYears interface {
		SetDefault(ctx context.Context, id int64) (fiscalyears.FiscalYear, error)
	}
	Groups interface {
		ReconcileCounters(ctx context.Context) (int, error)
	}
	CostCenters interface {
		Tree(ctx context.Context) ([]*costcenters.CostCenter, error)
	}
	Jobs interface {
		Trigger(ctx context.Context, taskType string) (string, error)
	}
}

// Loader opens the runtime dependencies. The returned func releases them.
type Loader func(ctx context.Context) (*Deps, func(), error)

// NewRootCmd assembles the command tree.
func NewRootCmd(load Loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Operational commands for the budgeting service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		migrateCmd(load),
		fiscalYearCmd(load),
		groupsCmd(load),
		costCentersCmd(load),
		jobsCmd(load),
	)
	return root
}

func withDeps(load Loader, fn func(cmd *cobra.Command, args []string, deps *Deps) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		deps, release, err := load(cmd.Context())
		if err != nil {
			return err
		}
		if release != nil {
			defer release()
		}
		return fn(cmd, args, deps)
	}
}

func migrateCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: withDeps(load, func(cmd *cobra.Command, _ []string, deps *Deps) error {
			if err := deps.Migrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		}),
	}
}

func fiscalYearCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{Use: "fiscal-year", Short: "Fiscal year administration"}
	cmd.AddCommand(&cobra.Command{
		Use:   "set-default <id>",
		Short: "Make a fiscal year the default, clearing the previous one",
		Args:  cobra.ExactArgs(1),
		RunE: withDeps(load, func(cmd *cobra.Command, args []string, deps *Deps) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid fiscal year id %q", args[0])
			}
			fy, err := deps.FiscalYears.SetDefault(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fiscal year %d (%d) is now the default\n", fy.ID, fy.Year)
			return nil
		}),
	})
	return cmd
}

func groupsCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{Use: "groups", Short: "Business group maintenance"}
	cmd.AddCommand(&cobra.Command{
		Use:   "reconcile",
		Short: "Recompute company_count and total_revenue for every group",
		Args:  cobra.NoArgs,
		RunE: withDeps(load, func(cmd *cobra.Command, _ []string, deps *Deps) error {
			n, err := deps.Groups.ReconcileCounters(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d groups\n", n)
			return nil
		}),
	})
	return cmd
}

func costCentersCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{Use: "cost-centers", Short: "Cost center inspection"}
	cmd.AddCommand(&cobra.Command{
		Use:   "tree",
		Short: "Print the cost center hierarchy",
		Args:  cobra.NoArgs,
		RunE: withDeps(load, func(cmd *cobra.Command, _ []string, deps *Deps) error {
			roots, err := deps.CostCenters.Tree(cmd.Context())
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), roots, 0)
			return nil
		}),
	})
	return cmd
}

func printTree(w io.Writer, nodes []*costcenters.CostCenter, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(w, "%s%s  %s  budget=%s spent=%s\n",
			strings.Repeat("  ", depth), n.Code, n.Name, n.Budget.StringFixed(2), n.Spent.StringFixed(2))
		printTree(w, n.Children, depth+1)
	}
}

func jobsCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{Use: "jobs", Short: "Background job helpers"}
	cmd.AddCommand(&cobra.Command{
		Use:       "trigger <task>",
		Short:     "Enqueue a maintenance task now",
		Example:   "  budgetctl jobs trigger groups:reconcile\n  budgetctl jobs trigger revenues:recurring",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"groups:reconcile", "revenues:recurring"},
		RunE: withDeps(load, func(cmd *cobra.Command, args []string, deps *Deps) error {
			id, err := deps.Jobs.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s\n", args[0], id)
			return nil
		}),
	})
	return cmd
}
