package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sadopc/worklog/internal/record"
)

var saveFile string

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Replace days of a month from a JSON payload",
	Long: `Save a month payload of the form {"YYYY-MM-DD": {"tasks": [...]}}.

Only the days present in the payload are replaced. Tasks may be in any of the
stored shapes: bare strings, legacy objects or current objects.

Examples:
  worklog save --client 2 --month 2025-03 --file days.json
  cat days.json | worklog save --client 2 --month 2025-03 --file -`,
	Args: cobra.NoArgs,
	RunE: runSave,
}

func init() {
	addScopeFlags(saveCmd, true)
	saveCmd.Flags().StringVarP(&saveFile, "file", "f", "", "payload file, - for stdin")
	saveCmd.MarkFlagRequired("file")
}

func runSave(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	sc, err := readScope(cmd, cfg)
	if err != nil {
		return err
	}

	var data []byte
	if saveFile == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(saveFile)
	}
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	days, err := record.DecodeMonthPayload(data, record.NewNormalizer(nil, nil))
	if err != nil {
		return err
	}

	r, err := openRepo(cfg, newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.SaveMonth(context.Background(), sc.user, sc.client, sc.month, days); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d days of %s to the %s backend\n", len(days), sc.month, r.Backend())
	return nil
}
