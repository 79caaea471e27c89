package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/worklog/internal/tui"
)

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	// Logs must not reach the terminal while the UI owns it.
	var w io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		w = f
	}
	logger := log.New(w, "worklog: ", log.LstdFlags)

	r, err := openRepo(cfg, logger)
	if err != nil {
		return err
	}

	app := tui.NewApp(r, *cfg, path, logger)
	p := tea.NewProgram(app, tea.WithAltScreen())
	final, err := p.Run()
	// The settings view may have replaced the repository.
	if a, ok := final.(tui.App); ok {
		a.Close()
	} else {
		r.Close()
	}
	return err
}
