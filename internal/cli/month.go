package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sadopc/worklog/internal/record"
)

var monthCmd = &cobra.Command{
	Use:   "month",
	Short: "Print one client's month",
	Long: `Print the tasks of one client's month with the merged hours per day.

Examples:
  worklog month --client 2 --month 2025-03
  worklog month --user 1 --client 2`,
	Args: cobra.NoArgs,
	RunE: runMonth,
}

func init() {
	addScopeFlags(monthCmd, true)
}

func runMonth(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	sc, err := readScope(cmd, cfg)
	if err != nil {
		return err
	}
	r, err := openRepo(cfg, newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer r.Close()

	m, err := r.ReadMonth(context.Background(), sc.user, sc.client, sc.month)
	if err != nil {
		return err
	}
	printMonth(cmd.OutOrStdout(), sc.month, m)
	return nil
}

var headerStyle = lipgloss.NewStyle().Bold(true)

func printMonth(w io.Writer, month string, m record.Month) {
	dates := make([]string, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var rows [][]string
	for _, d := range dates {
		for _, t := range m[d].Tasks {
			rows = append(rows, []string{
				d,
				t.ID,
				t.StartTime + "-" + t.EndTime,
				string(t.Status),
				t.Text,
				strings.Join(t.AssignedBy, ", "),
			})
		}
	}

	if len(rows) == 0 {
		fmt.Fprintf(w, "No tasks in %s\n", month)
		return
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("DATE", "ID", "TIME", "STATUS", "TASK", "ASSIGNED BY").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(w, tbl.Render())

	for _, d := range dates {
		if len(m[d].Tasks) > 0 {
			fmt.Fprintf(w, "  %s  %.2fh\n", d, m[d].TotalHours)
		}
	}
	fmt.Fprintf(w, "Total %s: %.2fh\n", month, record.MonthHours(m))
}
