package tui

import (
	"fmt"
	"log"

	"github.com/sadopc/worklog/internal/config"
	"github.com/sadopc/worklog/internal/record"
	"github.com/sadopc/worklog/internal/repo"
)

// viewState represents the currently active view.
type viewState int

const (
	viewMonth viewState = iota
	viewClients
	viewMigrate
	viewSettings
)

var viewNames = []string{"Month", "Clients", "Migrate", "Settings"}

// session is shared by every view, so replacing the repository after a
// settings change reaches all of them.
type session struct {
	repo    *repo.Repository
	cfg     config.Config
	cfgPath string
	log     *log.Logger
}

func (s *session) userID() int64 {
	return s.cfg.UserID
}

// rebuild swaps in a repository built from cfg and closes the old one.
func (s *session) rebuild(cfg config.Config) error {
	r, err := repo.New(cfg, repo.Options{Logger: s.log})
	if err != nil {
		return err
	}
	old := s.repo
	s.repo, s.cfg = r, cfg
	if old != nil {
		old.Close()
	}
	return nil
}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

type clientSelectedMsg struct {
	client repo.ClientInfo
}

type settingsSavedMsg struct {
	cfg config.Config
}

// --- Helpers ---

func formatHours(h float64) string {
	return fmt.Sprintf("%.2fh", h)
}

// nextStatus cycles through the statuses in workflow order.
func nextStatus(s record.Status) record.Status {
	order := []record.Status{
		record.StatusTodo,
		record.StatusScheduled,
		record.StatusInProgress,
		record.StatusDone,
		record.StatusCancelled,
	}
	for i, st := range order {
		if st == s {
			return order[(i+1)%len(order)]
		}
	}
	return record.StatusTodo
}
