package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/worklog/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Import the JSON file into the relational database",
	Long: `Import every client, month, day and task of one user from the JSON file
into the configured relational database.

The run reconciles with what the database already holds: unchanged tasks are
left alone, changed tasks are updated and tasks missing from the file are
deleted from the migrated days. Running it twice changes nothing the second
time. Failures of single records are listed in the report and do not stop
the run.

Examples:
  worklog migrate --user 1
  worklog migrate -v`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	addScopeFlags(migrateCmd, false)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	sc, err := readScope(cmd, cfg)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr())
	r, err := openRepo(cfg, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	out := cmd.OutOrStdout()
	ctx := context.Background()
	e, err := migrate.FromRepository(ctx, r, migrate.Options{
		Logger: logger,
		Progress: func(rep migrate.Report) {
			if verbose {
				fmt.Fprintf(out, "\rProgress: %d days, %d tasks", rep.DaysMigrated, rep.TasksMigrated)
			}
		},
	})
	if errors.Is(err, migrate.ErrNoDatabase) {
		return fmt.Errorf("%w: set the database connection with 'worklog config' or DB_* variables", err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Migrating %s for user %d...\n", r.Files().Path(), sc.user)
	rep, err := e.Migrate(ctx, sc.user)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "Run %s: %s\n", rep.RunID, rep)
	fmt.Fprintf(out, "Clients: %d (%d created, %d updated), months: %d\n",
		rep.Clients, rep.ClientsCreated, rep.ClientsUpdated, rep.Months)
	for _, s := range rep.Skipped {
		fmt.Fprintf(out, "  skipped %s\n", s)
	}
	for _, re := range rep.Errors {
		fmt.Fprintf(out, "  error: %s\n", re.Error())
	}
	return nil
}
