package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskmaster/autotasks/internal/client/views"
)

func (c *cli) dashboardCommand() *cobra.Command {
	var months, recent int
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"dash"},
		Short:   "Show task statistics, today's tasks and recent activity",
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			if months < 1 || months > 12 {
				return fmt.Errorf("--months must be between 1 and 12")
			}
			if recent < 1 || recent > 50 {
				return fmt.Errorf("--recent must be between 1 and 50")
			}

			d := c.app.Dashboard
			d.Months = months
			d.RecentLimit = recent
			if err := d.FetchAll(cmd.Context()); err != nil {
				return fmt.Errorf("%s", d.Error())
			}

			return views.Dashboard(cmd.OutOrStdout(), views.DashboardData{
				Stats:    d.Stats(),
				ByStatus: d.ByStatus(),
				ByMonth:  d.ByMonth(),
				Recent:   d.Recent(),
				Today:    d.Today(),
				Overdue:  d.OverdueBadge(),
				Pending:  d.PendingBadge(),
			})
		}),
	}
	cmd.Flags().IntVar(&months, "months", 6, "months in the trend, 1 to 12")
	cmd.Flags().IntVar(&recent, "recent", 10, "recent tasks to show, 1 to 50")
	return cmd
}
