package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/worklog/internal/config"
)

// settingsValues holds the form fields. The form writes through the
// pointers, so the values survive model copies.
type settingsValues struct {
	mode     *string
	dataDir  *string
	driver   *string
	host     *string
	port     *string
	user     *string
	password *string
	name     *string
	sslMode  *string
	path     *string
	userID   *string
}

func newSettingsValues() settingsValues {
	var mode, dataDir, driver, host, port, user, password, name, sslMode, path, userID string
	return settingsValues{
		mode: &mode, dataDir: &dataDir, driver: &driver, host: &host, port: &port,
		user: &user, password: &password, name: &name, sslMode: &sslMode, path: &path,
		userID: &userID,
	}
}

func (v settingsValues) load(cfg config.Config) {
	*v.mode = string(cfg.Mode)
	if *v.mode == "" {
		*v.mode = string(config.ModeMySQL)
	}
	*v.dataDir = cfg.DataDir
	*v.driver = cfg.Database.DriverName()
	*v.host = cfg.Database.Host
	*v.port = ""
	if cfg.Database.Port != 0 {
		*v.port = strconv.Itoa(cfg.Database.Port)
	}
	*v.user = cfg.Database.User
	*v.password = cfg.Database.Password
	*v.name = cfg.Database.Name
	*v.sslMode = cfg.Database.SSLMode
	*v.path = cfg.Database.Path
	*v.userID = strconv.FormatInt(cfg.UserID, 10)
}

// apply copies the form values over base. The fields were validated by
// the form, so parse errors only leave the base value in place.
func (v settingsValues) apply(base config.Config) config.Config {
	cfg := base
	cfg.Mode = config.ParseMode(*v.mode)
	if dir := strings.TrimSpace(*v.dataDir); dir != "" {
		cfg.DataDir = dir
	}
	cfg.Database = config.Database{
		Driver:   *v.driver,
		Host:     strings.TrimSpace(*v.host),
		User:     strings.TrimSpace(*v.user),
		Password: *v.password,
		Name:     strings.TrimSpace(*v.name),
		SSLMode:  strings.TrimSpace(*v.sslMode),
		Path:     strings.TrimSpace(*v.path),
	}
	if p, err := strconv.Atoi(strings.TrimSpace(*v.port)); err == nil {
		cfg.Database.Port = p
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(*v.userID), 10, 64); err == nil {
		cfg.UserID = id
	}
	return cfg
}

func validatePort(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return errors.New("port must be a number between 1 and 65535")
	}
	return nil
}

func validateUserID(s string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return errors.New("user id must be a positive number")
	}
	return nil
}

func (v settingsValues) form() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Storage mode").
				Options(
					huh.NewOption("Relational database", string(config.ModeMySQL)),
					huh.NewOption("JSON file", string(config.ModeJSON)),
				).Value(v.mode),
			huh.NewInput().Title("Data directory").Value(v.dataDir),
			huh.NewInput().Title("User ID").Value(v.userID).Validate(validateUserID),
		).Title("Storage"),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Driver").
				Options(
					huh.NewOption("MySQL", config.DriverMySQL),
					huh.NewOption("PostgreSQL", config.DriverPostgres),
					huh.NewOption("SQLite", config.DriverSQLite),
				).Value(v.driver),
			huh.NewInput().Title("Host").Value(v.host),
			huh.NewInput().Title("Port").Value(v.port).Validate(validatePort),
			huh.NewInput().Title("User").Value(v.user),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(v.password),
			huh.NewInput().Title("Database name").Value(v.name),
			huh.NewInput().Title("SSL mode (postgres)").Value(v.sslMode),
			huh.NewInput().Title("SQLite file").Value(v.path),
		).Title("Database"),
	).WithShowHelp(true).WithShowErrors(true)
}

// EditConfig runs the settings form on its own and returns the edited
// configuration.
func EditConfig(cfg config.Config) (config.Config, error) {
	v := newSettingsValues()
	v.load(cfg)
	if err := v.form().Run(); err != nil {
		return cfg, err
	}
	return v.apply(cfg), nil
}

type settingsModel struct {
	sess   *session
	width  int
	height int

	formActive bool
	form       *huh.Form
	values     settingsValues
}

func newSettingsModel(s *session) settingsModel {
	return settingsModel{sess: s, values: newSettingsValues()}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(msg, keys.Enter) {
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	s.values.load(s.sess.cfg)
	s.form = s.values.form()
	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		return s, s.save()
	}

	return s, cmd
}

func (s settingsModel) save() tea.Cmd {
	cfg := s.values.apply(s.sess.cfg)
	path := s.sess.cfgPath
	return func() tea.Msg {
		if err := config.Save(path, &cfg); err != nil {
			return statusMsg{text: fmt.Sprintf("Settings error: %v", err), isError: true}
		}
		return settingsSavedMsg{cfg: cfg}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	var rows []string
	rows = append(rows, title, "")
	for _, kv := range settingRows(s.sess.cfg, s.sess.repo.Backend()) {
		label := lipgloss.NewStyle().Width(18).Render(kv[0])
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(kv[1])))
	}
	rows = append(rows, "", mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// settingRows lists the configuration for display. The password is masked.
func settingRows(cfg config.Config, backend string) [][2]string {
	db := cfg.Database
	password := ""
	if db.Password != "" {
		password = "********"
	}
	port := ""
	if db.Port != 0 {
		port = strconv.Itoa(db.Port)
	}
	return [][2]string{
		{"mode", string(cfg.Mode)},
		{"active backend", backend},
		{"data dir", cfg.DataDir},
		{"user id", strconv.FormatInt(cfg.UserID, 10)},
		{"driver", db.DriverName()},
		{"host", db.Host},
		{"port", port},
		{"user", db.User},
		{"password", password},
		{"database", db.Name},
		{"sqlite file", db.Path},
	}
}
