package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	baseStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

type refreshMsg struct {
	entries []lbEntry
	err     error
}

type model struct {
	serverURL string
	roomID    string
	interval  time.Duration

	table   table.Model
	lastErr error
	updated time.Time
}

func initialModel(serverURL, roomID string, interval time.Duration) model {
	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Name", Width: 24},
		{Title: "Score", Width: 8},
		{Title: "Accepted", Width: 10},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	return model{
		serverURL: serverURL,
		roomID:    roomID,
		interval:  interval,
		table:     t,
	}
}

func (m model) refresh() tea.Msg {
	entries, err := fetchLeaderboard(m.serverURL, m.roomID)
	return refreshMsg{entries: entries, err: err}
}

func (m model) Init() tea.Cmd {
	return m.refresh
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.refresh
		}
	case refreshMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			rows := make([]table.Row, len(msg.entries))
			for i, e := range msg.entries {
				rows[i] = table.Row{
					fmt.Sprintf("%d", i+1),
					e.Name,
					fmt.Sprintf("%d", e.Score),
					fmt.Sprintf("%d", e.Accepted),
				}
			}
			m.table.SetRows(rows)
			m.updated = time.Now()
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg {
			return m.refresh()
		})
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) View() string {
	s := titleStyle.Render(fmt.Sprintf("Leaderboard for room %s", m.roomID)) + "\n\n"
	s += baseStyle.Render(m.table.View()) + "\n"
	if m.lastErr != nil {
		s += errStyle.Render(fmt.Sprintf("refresh failed: %v", m.lastErr)) + "\n"
	} else if !m.updated.IsZero() {
		s += fmt.Sprintf("updated %s\n", m.updated.Format("15:04:05"))
	}
	s += "\nPress r to refresh now, q to quit.\n"
	return s
}
