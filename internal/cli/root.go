// Package cli wires the commands of the worklog binary.
package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/worklog/internal/config"
	"github.com/sadopc/worklog/internal/repo"
)

var (
	cfgPath string
	verbose bool
	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "worklog",
		Short: "Work-day and task records per client",
		Long: `worklog keeps a month-by-month record of the tasks done for each client.

Records live in a relational database (MySQL, PostgreSQL or SQLite) or, when
none is configured or reachable, in a JSON file. Without a subcommand the
terminal UI starts.`,
		RunE:          runTUI,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.config/worklog/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(monthCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func configPath() (string, error) {
	if cfgPath != "" {
		return cfgPath, nil
	}
	return config.DefaultPath()
}

func loadConfig() (*config.Config, string, error) {
	path, err := configPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// newLogger writes to stderr with --verbose and discards otherwise.
func newLogger(w io.Writer) *log.Logger {
	if !verbose {
		w = io.Discard
	}
	return log.New(w, "worklog: ", log.LstdFlags)
}

func openRepo(cfg *config.Config, logger *log.Logger) (*repo.Repository, error) {
	return repo.New(*cfg, repo.Options{Logger: logger})
}

// scope holds the user, client and month selected by flags, falling back
// to the configuration and the current month.
type scope struct {
	user   int64
	client int64
	month  string
}

func addScopeFlags(cmd *cobra.Command, withClient bool) {
	cmd.Flags().Int64("user", 0, "user id (default from config)")
	if withClient {
		cmd.Flags().Int64("client", 0, "client id (default from config)")
		cmd.Flags().String("month", "", "month as YYYY-MM (default current month)")
	}
}

func readScope(cmd *cobra.Command, cfg *config.Config) (scope, error) {
	s := scope{user: cfg.UserID, client: cfg.ClientID, month: time.Now().Format("2006-01")}
	if v, _ := cmd.Flags().GetInt64("user"); v != 0 {
		s.user = v
	}
	if v, _ := cmd.Flags().GetInt64("client"); v != 0 {
		s.client = v
	}
	if v, _ := cmd.Flags().GetString("month"); v != "" {
		s.month = v
	}
	if s.user < 1 {
		return s, fmt.Errorf("a user id is required (--user or user_id in config)")
	}
	if cmd.Flags().Lookup("client") != nil && s.client < 1 {
		return s, fmt.Errorf("a client id is required (--client or client_id in config)")
	}
	return s, nil
}
