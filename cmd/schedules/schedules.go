// Package schedules provides commands for inspecting persisted schedules.
package schedules

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/jobsweep/cmd/common"
	"github.com/jonesrussell/jobsweep/internal/bootstrap"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/scheduler"
)

// Command creates the schedules command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedules",
		Short: "Inspect recurring operations",
	}
	cmd.AddCommand(listCommand())
	return cmd
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted schedules with their next run",
		Long:  `Lists every schedule stored in Postgres. Requires database.enabled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Deps()
			if err != nil {
				return err
			}
			defer func() { _ = deps.Logger.Sync() }()

			entries, err := bootstrap.ListSchedules(cmd.Context(), deps)
			if err != nil {
				return fmt.Errorf("failed to list schedules: %w", err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No schedules configured")
				return nil
			}
			render(cmd.OutOrStdout(), entries)
			return nil
		},
	}
}

func render(w io.Writer, entries []*domain.ScheduleEntry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Owner", "Interval", "Sources", "Date Range", "Enabled", "Runs", "Next Run"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.ID,
			e.Owner,
			e.Spec(),
			strings.Join(common.SourceNames(e.Sources), ","),
			e.DateRange,
			e.Enabled,
			e.RunCount,
			nextRun(e),
		})
	}
	t.Render()
}

func nextRun(e *domain.ScheduleEntry) string {
	if !e.Enabled {
		return "-"
	}
	next, err := scheduler.NextRun(e)
	if err != nil {
		return "invalid"
	}
	return next.Format(time.RFC3339)
}
