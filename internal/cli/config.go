package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/worklog/internal/config"
	"github.com/sadopc/worklog/internal/tui"
)

var configShow bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Edit the storage and database settings",
	Long: `Open the settings form and save the result to the config file.

With --show the effective configuration (file plus environment) is printed
instead, with the password masked.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShow, "show", false, "print the effective configuration")
}

func runConfig(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if configShow {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if cfg.Database.Password != "" {
			cfg.Database.Password = "********"
		}
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", path, b)
		return nil
	}

	// Edit the persisted record only, so environment values are not
	// written into the file.
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	edited, err := tui.EditConfig(*cfg)
	if err != nil {
		return err
	}
	if err := config.Save(path, &edited); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
	return nil
}
