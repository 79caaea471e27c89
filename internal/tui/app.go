package tui

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/worklog/internal/config"
	"github.com/sadopc/worklog/internal/export"
	"github.com/sadopc/worklog/internal/repo"
)

// App is the root Bubble Tea model.
type App struct {
	sess   *session
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	month    monthModel
	clients  clientsModel
	migrate  migrateModel
	settings settingsModel

	help      help.Model
	status    string
	statusErr bool
}

// NewApp builds the UI over r. cfgPath is where the settings view saves
// the configuration; logger may be nil.
func NewApp(r *repo.Repository, cfg config.Config, cfgPath string, logger *log.Logger) App {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &session{repo: r, cfg: cfg, cfgPath: cfgPath, log: logger}

	h := help.New()
	h.ShowAll = false

	return App{
		sess:       s,
		activeView: viewMonth,
		month:      newMonthModel(s, time.Now()),
		clients:    newClientsModel(s),
		migrate:    newMigrateModel(s),
		settings:   newSettingsModel(s),
		help:       h,
	}
}

// Close releases the repository the app is currently using.
func (a App) Close() error {
	return a.sess.repo.Close()
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.month.refresh(), a.clients.refresh())
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.month.setSize(a.width, contentHeight)
		a.clients.setSize(a.width, contentHeight)
		a.migrate.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewMonth
			return a, a.month.refresh()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewClients
			return a, a.clients.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewMigrate
			return a, nil
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, nil
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case statusMsg:
		a.status = msg.text
		a.statusErr = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusErr = false
		a.exportPicking = false
		return a, nil

	case clientSelectedMsg:
		a.month = a.month.selectClient(msg.client.ID, msg.client.Name)
		a.activeView = viewMonth
		return a, a.month.refresh()

	case settingsSavedMsg:
		if err := a.sess.rebuild(msg.cfg); err != nil {
			a.status = fmt.Sprintf("Settings error: %v", err)
			a.statusErr = true
			return a, nil
		}
		a.status = "Settings saved, using " + a.sess.repo.Backend()
		a.statusErr = false
		return a, tea.Batch(a.month.refresh(), a.clients.refresh())

	// Results of background commands go to their view whatever is active.
	case monthDataMsg, monthSavedMsg:
		var cmd tea.Cmd
		a.month, cmd = a.month.update(msg)
		return a, cmd

	case clientsDataMsg:
		var cmd tea.Cmd
		a.clients, cmd = a.clients.update(msg)
		return a, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.migrate, cmd = a.migrate.update(msg)
		return a, cmd

	case migrateDoneMsg:
		var cmd tea.Cmd
		a.migrate, cmd = a.migrate.update(msg)
		return a, tea.Batch(cmd, a.month.refresh(), a.clients.refresh())
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewMonth:
		a.month, cmd = a.month.update(msg)
	case viewClients:
		a.clients, cmd = a.clients.update(msg)
	case viewMigrate:
		a.migrate, cmd = a.migrate.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	return a.activeView == viewSettings && a.settings.formActive
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewMonth:
		return a.month.refresh()
	case viewClients:
		return a.clients.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewMonth:
		content = a.month.view()
	case viewClients:
		content = a.clients.view()
	case viewMigrate:
		content = a.migrate.view()
	case viewSettings:
		content = a.settings.view()
	}

	contentHeight := a.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("worklog")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	backend := successStyle.Render(" ● " + a.sess.repo.Backend())

	left := footerStyle.Render(helpView)
	right := backend + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	rows := []string{titleStyle.Render("Export " + a.month.month), ""}
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// doExport writes the month on screen to the home directory.
func (a App) doExport(format int) tea.Cmd {
	r := export.Report{Client: a.month.clientName, Month: a.month.month, Days: a.month.days}
	clientID := a.month.clientID
	return func() tea.Msg {
		home, err := os.UserHomeDir()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		base := fmt.Sprintf("worklog-%d-%s", clientID, r.Month)

		var path string
		if format == 0 {
			path = filepath.Join(home, base+".csv")
			if err := export.ToCSV(r, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(home, base+".json")
			if err := export.ToJSON(r, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}
		return exportDoneMsg{path: path}
	}
}
