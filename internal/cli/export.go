package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/worklog/internal/export"
	"github.com/sadopc/worklog/internal/repo"
	"github.com/sadopc/worklog/internal/store"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one client's month as CSV or JSON",
	Long: `Export one client's month.

Examples:
  worklog export --client 2 --month 2025-03 --format csv --out march.csv
  worklog export --client 2 --format json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	addScopeFlags(exportCmd, true)
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or json")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file, - for stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(exportFormat)
	if format != "csv" && format != "json" {
		return fmt.Errorf("unknown format %q: use csv or json", exportFormat)
	}

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

	ctx := context.Background()
	days, err := r.ReadMonth(ctx, sc.user, sc.client, sc.month)
	if err != nil {
		return err
	}
	rep := export.Report{Client: clientName(ctx, r, sc), Month: sc.month, Days: days}

	switch {
	case exportOut == "-" && format == "csv":
		return export.WriteCSV(cmd.OutOrStdout(), rep)
	case exportOut == "-":
		return export.WriteJSON(cmd.OutOrStdout(), rep)
	case format == "csv":
		err = export.ToCSV(rep, exportOut)
	default:
		err = export.ToJSON(rep, exportOut)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", exportOut)
	return nil
}

// clientName looks the client up for the report header.
func clientName(ctx context.Context, r *repo.Repository, sc scope) string {
	clients, err := r.Clients(ctx, sc.user)
	if err == nil {
		for _, c := range clients {
			if c.ID == sc.client {
				return c.Name
			}
		}
	}
	return store.PlaceholderName(sc.client)
}
