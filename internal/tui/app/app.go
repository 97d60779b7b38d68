package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ratewright/internal/engine"
	"ratewright/internal/loadtest"
	"ratewright/internal/storage"
	"ratewright/internal/tui/styles"
	"ratewright/internal/tui/views"
)

type ViewID int

const (
	ViewRunner ViewID = iota
	ViewDashboard
	ViewHistory
)

// connSnapshotMsg/runDoneMsg wrap loadtest.Harness's async results as
// bubbletea messages so Update stays the only place that touches Model.
type connSnapshotMsg loadtest.ConnSnapshot
type runDoneMsg struct {
	summary *loadtest.RunSummary
	err     error
}

type Model struct {
	Store *storage.Store

	Width  int
	Height int

	CurrentView ViewID
	MenuItems   []string
	RunActive   bool

	RunnerView  views.RunnerView
	DashView    views.DashboardView
	HistoryView views.HistoryView

	hostname string
	updates  chan loadtest.ConnSnapshot
	done     chan runDoneMsg
	cancel   context.CancelFunc
	latest   []engine.StatsSnapshot
}

func NewModel(store *storage.Store) Model {
	return Model{
		Store:       store,
		CurrentView: ViewRunner,
		MenuItems:   []string{"New Test", "Dashboard", "History"},
		RunnerView: views.NewRunnerView(views.RunConfig{
			URL:     "http://localhost:8080/fast",
			Options: engine.DefaultOptions(),
		}),
		HistoryView: views.NewHistoryView(store),
	}
}

func (m Model) Init() tea.Cmd {
	return m.RunnerView.Init()
}

func (m *Model) saveHistory(cfg views.RunConfig, summary *loadtest.RunSummary, err error) {
	if m.Store == nil || summary == nil {
		return
	}
	var p50, p99 int64
	var mean float64
	if summary.GetLatencyMicros != nil && summary.GetLatencyMicros.TotalCount() > 0 {
		p50 = summary.GetLatencyMicros.ValueAtQuantile(50)
		p99 = summary.GetLatencyMicros.ValueAtQuantile(99)
		mean = summary.GetLatencyMicros.Mean()
	}
	item := storage.HistoryItem{
		Timestamp: time.Now(),
		Options:   cfg.Options,
		Hostname:  cfg.URL,
		Summary: storage.SummaryFromRunSummary(
			summary.Connections, summary.Duration,
			summary.Ops, summary.Gets, summary.Posts, summary.GetMisses, summary.Skips,
			summary.TxBytes, summary.RxBytes, p50, p99, mean, err,
		),
	}
	m.Store.Save(item)
	m.HistoryView.Refresh()
}

func waitForUpdate(ch chan loadtest.ConnSnapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return connSnapshotMsg(snap)
	}
}

func waitForDone(ch chan runDoneMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func (m Model) startRun(cfg views.RunConfig) (Model, tea.Cmd) {
	descriptors, err := loadtest.SingleDescriptor(cfg.URL, "GET", nil)
	if err != nil {
		return m, nil
	}
	harness, err := loadtest.NewHarness(cfg.Options, descriptors, true)
	if err != nil {
		return m, nil
	}

	m.updates = make(chan loadtest.ConnSnapshot, 64)
	m.done = make(chan runDoneMsg, 1)
	harness.StatsUpdates = m.updates

	n := cfg.Options.Connections
	if n < 1 {
		n = 1
	}
	m.latest = make([]engine.StatsSnapshot, n)
	m.hostname = cfg.URL

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go func() {
		summary, err := harness.Run(ctx)
		close(m.updates)
		m.done <- runDoneMsg{summary: summary, err: err}
	}()

	totalDur := time.Duration(cfg.Options.Time * float64(time.Second))
	m.DashView = views.NewDashboardView(cfg.URL, totalDur, m.Width-25, m.Height)
	m.CurrentView = ViewDashboard
	m.RunActive = true

	return m, tea.Batch(waitForUpdate(m.updates), waitForDone(m.done))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "f1":
			m.CurrentView = ViewRunner
			return m, nil
		case "f2":
			m.CurrentView = ViewDashboard
			return m, nil
		case "f3":
			m.CurrentView = ViewHistory
			m.HistoryView.Refresh()
			return m, nil
		}

		if m.CurrentView == ViewRunner && msg.String() == "enter" && m.RunnerView.Focus == len(m.RunnerView.Inputs)-1 {
			cfg := m.RunnerView.GetConfig()
			return m.startRun(cfg)
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.RunnerView.Width = msg.Width - 25
		m.DashView.Width = msg.Width - 25
		m.DashView.Height = msg.Height
		m.HistoryView.Width = msg.Width - 25
		m.HistoryView.Height = msg.Height

		updatedDash, _ := m.DashView.Update(msg)
		m.DashView = updatedDash
		updatedHist, _ := m.HistoryView.Update(msg)
		m.HistoryView = updatedHist

	case connSnapshotMsg:
		if msg.Index >= 0 && msg.Index < len(m.latest) {
			m.latest[msg.Index] = msg.Snapshot
		}
		summary := loadtest.MergeSnapshots(m.latest)
		updatedDash, c := m.DashView.Update(summary)
		m.DashView = updatedDash
		cmds = append(cmds, c, waitForUpdate(m.updates))

	case runDoneMsg:
		if m.RunActive {
			m.saveHistory(views.RunConfig{URL: m.hostname, Options: m.RunnerView.GetConfig().Options}, msg.summary, msg.err)
			m.RunActive = false
		}
		if msg.summary != nil {
			updatedDash, c := m.DashView.Update(msg.summary)
			m.DashView = updatedDash
			cmds = append(cmds, c)
		}
	}

	switch m.CurrentView {
	case ViewRunner:
		m.RunnerView, cmd = m.RunnerView.Update(msg)
		cmds = append(cmds, cmd)
	case ViewHistory:
		m.HistoryView, cmd = m.HistoryView.Update(msg)
		cmds = append(cmds, cmd)

		if m.HistoryView.SelectedItem != nil {
			item := *m.HistoryView.SelectedItem
			m.RunnerView = views.NewRunnerView(views.RunConfig{URL: item.Hostname, Options: item.Options})
			m.RunnerView.Width = m.Width - 25
			m.HistoryView.SelectedItem = nil
			m.CurrentView = ViewRunner
			return m, nil
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.Width == 0 {
		return "Initializing..."
	}

	sidebarWidth := 20
	contentWidth := m.Width - sidebarWidth - 4

	sidebar := strings.Builder{}
	sidebar.WriteString(styles.Title.Render(fmt.Sprintf("%s", "ratewright")))
	sidebar.WriteString("\n\n")

	for i, item := range m.MenuItems {
		if ViewID(i) == m.CurrentView {
			sidebar.WriteString(styles.MenuItemActive.Render(item))
		} else {
			sidebar.WriteString(styles.MenuItem.Render(item))
		}
		sidebar.WriteString("\n")
	}

	content := ""
	switch m.CurrentView {
	case ViewRunner:
		content = m.RunnerView.View()
	case ViewDashboard:
		content = m.DashView.View()
	case ViewHistory:
		content = m.HistoryView.View()
	}

	leftPane := styles.Panel.Width(sidebarWidth).Height(m.Height - 2).Render(sidebar.String())
	rightPane := styles.PanelActive.Width(contentWidth).Height(m.Height - 2).Render(content)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
}
