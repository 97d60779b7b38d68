package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ratewright/internal/loadtest"
	"ratewright/internal/tui/components"
	"ratewright/internal/tui/styles"
)

// DashboardView renders a live loadtest.RunSummary while a Harness runs.
type DashboardView struct {
	Summary *loadtest.RunSummary
	RunURL  string

	Viewport viewport.Model
	Progress progress.Model
	OpsTrend components.Sparkline

	StartTime  time.Time
	Duration   time.Duration
	LastUpdate time.Time
	lastOps    uint64

	Width  int
	Height int
}

func NewDashboardView(url string, duration time.Duration, width, height int) DashboardView {
	prog := progress.New(
		progress.WithGradient("#7D56F4", "#04B575"),
		progress.WithWidth(width-10),
		progress.WithoutPercentage(),
	)
	vp := viewport.New(width-6, height-8)

	return DashboardView{
		RunURL:     url,
		Viewport:   vp,
		Progress:   prog,
		OpsTrend:   components.NewSparkline(40, 1, "Ops/tick", styles.Active),
		StartTime:  time.Now(),
		Duration:   duration,
		LastUpdate: time.Now(),
		Width:      width,
		Height:     height,
	}
}

func (m DashboardView) Init() tea.Cmd {
	return nil
}

func (m DashboardView) Update(msg tea.Msg) (DashboardView, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case *loadtest.RunSummary:
		m.LastUpdate = time.Now()
		if msg.Ops >= m.lastOps {
			m.OpsTrend.Add(msg.Ops - m.lastOps)
		}
		m.lastOps = msg.Ops
		m.Summary = msg

		elapsed := time.Since(m.StartTime)
		pct := 0.0
		if m.Duration > 0 {
			pct = float64(elapsed) / float64(m.Duration)
		}
		if pct > 1.0 {
			pct = 1.0
		}
		cmds = append(cmds, m.Progress.SetPercent(pct))

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 10
		m.Viewport.Width = msg.Width - 6
		m.Viewport.Height = msg.Height - 8

	case progress.FrameMsg:
		newModel, c := m.Progress.Update(msg)
		if newModel, ok := newModel.(progress.Model); ok {
			m.Progress = newModel
		}
		cmds = append(cmds, c)
	}

	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m DashboardView) View() string {
	s := strings.Builder{}

	elapsed := time.Since(m.StartTime)
	remaining := m.Duration - elapsed
	if remaining < 0 {
		remaining = 0
	}

	timer := fmt.Sprintf("%s / %s", elapsed.Round(time.Second), remaining.Round(time.Second))
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		styles.Title.Render("Testing in Progress"),
		lipgloss.NewStyle().MarginLeft(2).Foreground(styles.ColorSubtle).Render(timer),
		lipgloss.NewStyle().MarginLeft(4).Foreground(styles.ColorPrimary).Bold(true).Render(m.RunURL),
	)
	s.WriteString(header)
	s.WriteString("\n\n")
	s.WriteString(m.Progress.View())
	s.WriteString("\n\n")

	if m.Summary == nil {
		s.WriteString(styles.Subtle.Render("waiting for first sample..."))
		content := styles.Panel.Width(m.Width - 6).Render(s.String())
		m.Viewport.SetContent(content)
		return m.Viewport.View()
	}

	summary := m.Summary
	rps := 0.0
	if elapsed.Seconds() > 0 {
		rps = float64(summary.Ops) / elapsed.Seconds()
	}

	row1 := lipgloss.JoinHorizontal(lipgloss.Top,
		MakeCard("Connections", styles.Value.Render(fmt.Sprintf("%d", summary.Connections))),
		MakeCard("Ops", styles.Value.Render(fmt.Sprintf("%d", summary.Ops))),
		MakeCard("Ops/sec", styles.Value.Render(fmt.Sprintf("%.1f", rps))),
		MakeCard("Gets / Posts", styles.Text.Render(fmt.Sprintf("%d / %d", summary.Gets, summary.Posts))),
	)
	s.WriteString(row1)
	s.WriteString("\n")

	getMissRate := 0.0
	if summary.Gets > 0 {
		getMissRate = float64(summary.GetMisses) / float64(summary.Gets) * 100
	}
	missColor := styles.Text
	if getMissRate > 0 {
		missColor = styles.Warn
	}

	row2 := lipgloss.JoinHorizontal(lipgloss.Top,
		MakeCard("GET misses", missColor.Render(fmt.Sprintf("%d (%.1f%%)", summary.GetMisses, getMissRate))),
		MakeCard("Skips", styles.Text.Render(fmt.Sprintf("%d", summary.Skips))),
		MakeCard("TX bytes", styles.Text.Render(fmt.Sprintf("%d", summary.TxBytes))),
		MakeCard("RX bytes", styles.Text.Render(fmt.Sprintf("%d", summary.RxBytes))),
	)
	s.WriteString(row2)
	s.WriteString("\n")

	if summary.GetLatencyMicros != nil && summary.GetLatencyMicros.TotalCount() > 0 {
		h := summary.GetLatencyMicros
		row3 := lipgloss.JoinHorizontal(lipgloss.Top,
			MakeCard("GET P50", styles.Text.Render(fmt.Sprintf("%.1f ms", float64(h.ValueAtQuantile(50))/1000))),
			MakeCard("GET P90", styles.Text.Render(fmt.Sprintf("%.1f ms", float64(h.ValueAtQuantile(90))/1000))),
			MakeCard("GET P99", styles.Warn.Render(fmt.Sprintf("%.1f ms", float64(h.ValueAtQuantile(99))/1000))),
			MakeCard("GET Max", styles.Error.Render(fmt.Sprintf("%.1f ms", float64(h.Max())/1000))),
		)
		s.WriteString(row3)
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.OpsTrend.View())

	if len(summary.FatalErrors) > 0 {
		s.WriteString("\n\n")
		s.WriteString(styles.Error.Render("Fatal: " + summary.FatalErrors[0].Error()))
	}

	content := styles.Panel.Width(m.Width - 6).Render(s.String())
	m.Viewport.SetContent(content)
	return m.Viewport.View()
}

func MakeCard(title, value string) string {
	return styles.Box.Width(20).Align(lipgloss.Center).Render(
		fmt.Sprintf("%s\n%s", styles.Subtle.Render(title), value),
	)
}
