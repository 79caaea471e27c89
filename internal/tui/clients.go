package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/worklog/internal/repo"
)

type clientsModel struct {
	sess   *session
	width  int
	height int

	clients []repo.ClientInfo
	cursor  int
	err     error
}

func newClientsModel(s *session) clientsModel {
	return clientsModel{sess: s}
}

func (c *clientsModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

type clientsDataMsg struct {
	clients []repo.ClientInfo
	err     error
}

func (c clientsModel) refresh() tea.Cmd {
	sess := c.sess
	return func() tea.Msg {
		clients, err := sess.repo.Clients(context.Background(), sess.userID())
		return clientsDataMsg{clients: clients, err: err}
	}
}

func (c clientsModel) update(msg tea.Msg) (clientsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case clientsDataMsg:
		c.clients = msg.clients
		c.err = msg.err
		if c.cursor >= len(c.clients) {
			c.cursor = max(0, len(c.clients)-1)
		}
		return c, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if c.cursor > 0 {
				c.cursor--
			}
		case key.Matches(msg, keys.Down):
			if c.cursor < len(c.clients)-1 {
				c.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if len(c.clients) > 0 {
				selected := c.clients[c.cursor]
				return c, func() tea.Msg { return clientSelectedMsg{client: selected} }
			}
		case key.Matches(msg, keys.Reload):
			return c, c.refresh()
		}
	}
	return c, nil
}

func (c clientsModel) view() string {
	w := c.width - 4
	title := titleStyle.Render("Clients")

	var rows []string
	rows = append(rows, title, "")

	switch {
	case c.err != nil:
		rows = append(rows, errorStyle.Render("  "+c.err.Error()))
	case len(c.clients) == 0:
		rows = append(rows, mutedStyle.Render("  No clients yet"))
	default:
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-8s %-28s %s", "ID", "Name", "Website")))
		rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(max(w-6, 10), 60))))
		for i, cl := range c.clients {
			cursor := "  "
			style := normalItemStyle
			if i == c.cursor {
				cursor = "> "
				style = selectedItemStyle
			}
			rows = append(rows, style.Render(fmt.Sprintf("%s%-8d %-28s %s", cursor, cl.ID, cl.Name, cl.Website)))
		}
	}

	rows = append(rows, "", mutedStyle.Render("  enter: open month  r: reload"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
