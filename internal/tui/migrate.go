package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/worklog/internal/migrate"
)

// maxShownErrors caps the per-record failures listed under a report.
const maxShownErrors = 8

type migrateModel struct {
	sess   *session
	width  int
	height int

	running bool
	spinner spinner.Model
	report  *migrate.Report
	err     error
}

func newMigrateModel(s *session) migrateModel {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(colorPrimary)),
	)
	return migrateModel{sess: s, spinner: sp}
}

func (m *migrateModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type migrateDoneMsg struct {
	report *migrate.Report
	err    error
}

func (m migrateModel) start() (migrateModel, tea.Cmd) {
	if m.running {
		return m, nil
	}
	m.running = true
	m.err = nil
	sess := m.sess
	run := func() tea.Msg {
		ctx := context.Background()
		e, err := migrate.FromRepository(ctx, sess.repo, migrate.Options{Logger: sess.log})
		if err != nil {
			return migrateDoneMsg{err: err}
		}
		rep, err := e.Migrate(ctx, sess.userID())
		return migrateDoneMsg{report: rep, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

func (m migrateModel) update(msg tea.Msg) (migrateModel, tea.Cmd) {
	switch msg := msg.(type) {
	case migrateDoneMsg:
		m.running = false
		m.report = msg.report
		m.err = msg.err
		text := "Migration finished"
		if msg.err != nil {
			text = "Migration failed"
		}
		return m, func() tea.Msg { return statusMsg{text: text, isError: msg.err != nil} }

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, keys.Run) || key.Matches(msg, keys.Enter) {
			return m.start()
		}
	}
	return m, nil
}

func (m migrateModel) view() string {
	w := m.width - 4
	rows := []string{titleStyle.Render("Migrate"), ""}

	target := fmt.Sprintf("  %s → %s database", m.sess.repo.Files().Path(), m.sess.cfg.Database.DriverName())
	rows = append(rows, mutedStyle.Render(target), "")

	switch {
	case m.running:
		rows = append(rows, "  "+m.spinner.View()+" importing records...")
	case m.err != nil:
		rows = append(rows, errorStyle.Render("  "+m.err.Error()))
	case m.report != nil:
		rows = append(rows, renderReport(m.report)...)
	default:
		rows = append(rows, mutedStyle.Render("  Press m to import the flat file into the database"))
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderReport(r *migrate.Report) []string {
	line := func(label string, v int) string {
		return fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(18).Render(label), highlightStyle.Render(fmt.Sprint(v)))
	}
	rows := []string{
		line("Clients", r.Clients),
		line("Days migrated", r.DaysMigrated),
		line("Tasks migrated", r.TasksMigrated),
		line("Inserted", r.Inserted),
		line("Updated", r.Updated),
		line("Deleted", r.Deleted),
		line("Unchanged", r.Unchanged),
		line("Clients created", r.ClientsCreated),
		"",
	}
	if len(r.Skipped) > 0 {
		rows = append(rows, warningStyle.Render("  Skipped keys: "+strings.Join(r.Skipped, ", ")))
	}
	if len(r.Errors) == 0 {
		rows = append(rows, successStyle.Render("  No errors"))
		return rows
	}
	rows = append(rows, errorStyle.Render(fmt.Sprintf("  %d errors", len(r.Errors))))
	for i, e := range r.Errors {
		if i == maxShownErrors {
			rows = append(rows, mutedStyle.Render(fmt.Sprintf("  ... and %d more", len(r.Errors)-maxShownErrors)))
			break
		}
		rows = append(rows, errorStyle.Render("  • "+e.Error()))
	}
	return rows
}
