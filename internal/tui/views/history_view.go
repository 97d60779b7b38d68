package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ratewright/internal/storage"
	"ratewright/internal/tui/styles"
)

type HistoryView struct {
	Store *storage.Store
	Table table.Model

	SelectedItem *storage.HistoryItem

	Width  int
	Height int
}

func NewHistoryView(store *storage.Store) HistoryView {
	columns := []table.Column{
		{Title: "Time", Width: 20},
		{Title: "Hostname", Width: 30},
		{Title: "Connections", Width: 12},
		{Title: "Ops", Width: 10},
		{Title: "GET misses", Width: 12},
		{Title: "P99 (us)", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ColorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.ColorPrimary)
	s.Selected = s.Selected.
		Foreground(styles.ColorBg).
		Background(styles.ColorPrimary).
		Bold(true)
	t.SetStyles(s)

	m := HistoryView{Store: store, Table: t}
	m.Refresh()
	return m
}

func (m *HistoryView) Refresh() {
	if m.Store == nil {
		return
	}
	items, err := m.Store.List()
	if err != nil {
		return
	}

	rows := make([]table.Row, len(items))
	for i, item := range items {
		rows[i] = table.Row{
			item.Timestamp.Format("15:04:05"),
			item.Hostname,
			fmt.Sprintf("%d", item.Summary.Connections),
			fmt.Sprintf("%d", item.Summary.Ops),
			fmt.Sprintf("%d", item.Summary.GetMisses),
			fmt.Sprintf("%d", item.Summary.GetP99Micros),
		}
	}
	m.Table.SetRows(rows)
}

func (m HistoryView) Init() tea.Cmd {
	return nil
}

func (m HistoryView) Update(msg tea.Msg) (HistoryView, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)
		m.Table.SetHeight(msg.Height - 6)
		m.Refresh()

	case tea.KeyMsg:
		if msg.String() == "ctrl+h" {
			m.Refresh()
		}
		if msg.String() == "enter" {
			if m.Store == nil {
				return m, nil
			}
			items, err := m.Store.List()
			if err != nil {
				return m, nil
			}
			idx := m.Table.Cursor()
			if idx >= 0 && idx < len(items) {
				m.SelectedItem = &items[idx]
				return m, nil
			}
		}
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m HistoryView) View() string {
	s := strings.Builder{}
	s.WriteString(styles.Title.Render("Past Runs"))
	s.WriteString("\n\n")

	if len(m.Table.Rows()) == 0 {
		s.WriteString(styles.Subtle.Render("No history found.\nRun a test to generate data."))
	} else {
		s.WriteString(styles.Box.Render(m.Table.View()))
	}
	s.WriteString("\n\n")
	s.WriteString(styles.Subtle.Render("[Enter] Replay config"))
	return s.String()
}
