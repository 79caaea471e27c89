package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/worklog/internal/record"
	"github.com/sadopc/worklog/internal/store"
)

type monthModel struct {
	sess   *session
	width  int
	height int

	clientID   int64
	clientName string
	month      string // YYYY-MM
	days       record.Month
	dates      []string // dates with at least one task
	cursor     int
	taskCursor int
	viewing    bool // true = moving through the tasks of the selected day
	err        error

	chart barchart.Model
}

func newMonthModel(s *session, now time.Time) monthModel {
	return monthModel{
		sess:       s,
		clientID:   s.cfg.ClientID,
		clientName: store.PlaceholderName(s.cfg.ClientID),
		month:      now.Format("2006-01"),
		days:       record.Month{},
		chart:      barchart.New(60, 12),
	}
}

func (m *monthModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.buildChart()
}

type monthDataMsg struct {
	clientID int64
	month    string
	days     record.Month
	err      error
}

type monthSavedMsg struct {
	err error
}

func (m monthModel) refresh() tea.Cmd {
	sess, clientID, month := m.sess, m.clientID, m.month
	return func() tea.Msg {
		days, err := sess.repo.ReadMonth(context.Background(), sess.userID(), clientID, month)
		return monthDataMsg{clientID: clientID, month: month, days: days, err: err}
	}
}

func (m monthModel) selectClient(id int64, name string) monthModel {
	m.clientID = id
	m.clientName = name
	m.cursor, m.taskCursor, m.viewing = 0, 0, false
	return m
}

func (m monthModel) shiftMonth(delta int) monthModel {
	t, err := time.Parse("2006-01", m.month)
	if err != nil {
		return m
	}
	m.month = t.AddDate(0, delta, 0).Format("2006-01")
	m.cursor, m.taskCursor, m.viewing = 0, 0, false
	return m
}

func (m monthModel) selectedDate() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.dates) {
		return "", false
	}
	return m.dates[m.cursor], true
}

func (m monthModel) update(msg tea.Msg) (monthModel, tea.Cmd) {
	switch msg := msg.(type) {
	case monthDataMsg:
		// Drop answers for a month or client the user already left.
		if msg.month != m.month || msg.clientID != m.clientID {
			return m, nil
		}
		m.err = msg.err
		m.days = msg.days
		if m.days == nil {
			m.days = record.Month{}
		}
		var dates []string
		for d, rec := range m.days {
			if len(rec.Tasks) > 0 {
				dates = append(dates, d)
			}
		}
		sort.Strings(dates)
		m.dates = dates
		if m.cursor >= len(m.dates) {
			m.cursor = max(0, len(m.dates)-1)
		}
		m.buildChart()
		return m, nil

	case monthSavedMsg:
		if msg.err != nil {
			return m, func() tea.Msg { return statusMsg{text: fmt.Sprintf("Save error: %v", msg.err), isError: true} }
		}
		return m, m.refresh()

	case tea.KeyMsg:
		if m.viewing {
			return m.updateTasks(msg)
		}
		return m.updateDays(msg)
	}
	return m, nil
}

func (m monthModel) updateDays(msg tea.KeyMsg) (monthModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Left):
		m = m.shiftMonth(-1)
		return m, m.refresh()
	case key.Matches(msg, keys.Right):
		m = m.shiftMonth(1)
		return m, m.refresh()
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.dates)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Enter):
		if len(m.dates) > 0 {
			m.viewing = true
			m.taskCursor = 0
		}
	case key.Matches(msg, keys.Reload):
		return m, m.refresh()
	}
	return m, nil
}

func (m monthModel) updateTasks(msg tea.KeyMsg) (monthModel, tea.Cmd) {
	date, _ := m.selectedDate()
	tasks := m.days[date].Tasks

	switch {
	case key.Matches(msg, keys.Back):
		m.viewing = false
	case key.Matches(msg, keys.Up):
		if m.taskCursor > 0 {
			m.taskCursor--
		}
	case key.Matches(msg, keys.Down):
		if m.taskCursor < len(tasks)-1 {
			m.taskCursor++
		}
	case key.Matches(msg, keys.Status):
		if m.taskCursor < len(tasks) {
			return m, m.saveStatus(date, m.taskCursor)
		}
	}
	return m, nil
}

// saveStatus writes the selected day back with one task's status advanced.
// Only that day is sent, so the rest of the month is left alone.
func (m monthModel) saveStatus(date string, i int) tea.Cmd {
	day := m.days[date]
	tasks := append([]record.Task(nil), day.Tasks...)
	tasks[i].Status = nextStatus(tasks[i].Status)
	payload := record.Month{date: {Date: date, Tasks: tasks}}

	sess, clientID, month := m.sess, m.clientID, m.month
	return func() tea.Msg {
		err := sess.repo.SaveMonth(context.Background(), sess.userID(), clientID, month, payload)
		return monthSavedMsg{err: err}
	}
}

func (m *monthModel) buildChart() {
	chartWidth := m.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if m.height > 36 {
		chartHeight = 14
	}

	m.chart = barchart.New(chartWidth, chartHeight)

	first, err := time.Parse("2006-01", m.month)
	if err != nil {
		return
	}

	var bars []barchart.BarData
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		hours := record.DayHours(m.days[d.Format("2006-01-02")].Tasks)
		style := lipgloss.NewStyle().Foreground(colorPrimary)
		if hours == 0 {
			style = lipgloss.NewStyle().Foreground(colorSubtle)
		}
		bars = append(bars, barchart.BarData{
			Label:  d.Format("02"),
			Values: []barchart.BarValue{{Name: "hours", Value: hours, Style: style}},
		})
	}

	m.chart.PushAll(bars)
	m.chart.Draw()
}

func (m monthModel) view() string {
	w := m.width - 4

	first, _ := time.Parse("2006-01", m.month)
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render(m.clientName), "  ",
		highlightStyle.Render(first.Format("January 2006")), "  ",
		mutedStyle.Render("total "+formatHours(record.MonthHours(m.days))),
	)

	var body string
	if m.viewing {
		body = m.renderTasks(w)
	} else {
		body = m.renderDays(w)
	}

	nav := mutedStyle.Render("  ←/→: month  ↑/↓: day  enter: tasks  s: status  r: reload")
	if m.err != nil {
		nav = errorStyle.Render("  " + m.err.Error())
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", m.chart.View(), "", body, "", nav,
		),
	)
}

func (m monthModel) renderDays(w int) string {
	if len(m.dates) == 0 {
		return mutedStyle.Render("  No tasks logged this month")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %6s %8s", "Date", "Tasks", "Hours")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 30))))

	for i, d := range m.dates {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rec := m.days[d]
		rows = append(rows, style.Render(fmt.Sprintf("%s%-12s %6d %8s", cursor, d, len(rec.Tasks), formatHours(rec.TotalHours))))
	}
	return strings.Join(rows, "\n")
}

func (m monthModel) renderTasks(w int) string {
	date, _ := m.selectedDate()
	rec := m.days[date]

	rows := []string{highlightStyle.Render(fmt.Sprintf("  %s  %s", date, formatHours(rec.TotalHours)))}
	for i, t := range rec.Tasks {
		cursor := "  "
		style := normalItemStyle
		if i == m.taskCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		line := fmt.Sprintf("%s%s-%s  %-14s %s", cursor, t.StartTime, t.EndTime,
			statusStyle(t.Status).Render(string(t.Status)), style.Render(t.Text))
		if len(t.AssignedBy) > 0 {
			line += mutedStyle.Render("  (" + strings.Join(t.AssignedBy, ", ") + ")")
		}
		if len(t.Attachments) > 0 {
			line += mutedStyle.Render(fmt.Sprintf("  [%d files]", len(t.Attachments)))
		}
		if w > 0 {
			line = lipgloss.NewStyle().MaxWidth(w).Render(line)
		}
		rows = append(rows, line)
	}
	rows = append(rows, "", mutedStyle.Render("  esc: back to days"))
	return strings.Join(rows, "\n")
}
