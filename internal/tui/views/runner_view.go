package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ratewright/internal/engine"
	"ratewright/internal/tui/styles"
)

// RunConfig is what RunnerView gathers: a target URL plus the engine
// Options a Harness will be built from.
type RunConfig struct {
	URL     string
	Options engine.Options
}

const (
	fieldURL = iota
	fieldConnections
	fieldDepth
	fieldRecords
	fieldLambda
	fieldIA
	fieldUpdate
	fieldTime
	fieldCount
)

type RunnerView struct {
	Base   RunConfig
	Inputs []textinput.Model
	Focus  int

	Width  int
	Height int
}

func NewRunnerView(defaultCfg RunConfig) RunnerView {
	m := RunnerView{
		Base:   defaultCfg,
		Inputs: make([]textinput.Model, fieldCount),
	}

	field := func(i int, placeholder, value string, width int) {
		t := textinput.New()
		t.Placeholder = placeholder
		t.SetValue(value)
		t.Width = width
		m.Inputs[i] = t
	}

	opts := defaultCfg.Options
	field(fieldURL, "http://localhost:8080/fast", defaultCfg.URL, 40)
	field(fieldConnections, "1", strconv.Itoa(opts.Connections), 10)
	field(fieldDepth, "4", strconv.Itoa(opts.Depth), 10)
	field(fieldRecords, "10000", strconv.Itoa(opts.Records), 10)
	field(fieldLambda, "0", strconv.FormatFloat(opts.Lambda, 'f', -1, 64), 10)
	field(fieldIA, "exponential", opts.IA, 20)
	field(fieldUpdate, "0.0", strconv.FormatFloat(opts.Update, 'f', -1, 64), 10)
	field(fieldTime, "10", strconv.FormatFloat(opts.Time, 'f', -1, 64), 10)

	m.Inputs[0].Focus()
	return m
}

func (m RunnerView) Init() tea.Cmd {
	return textinput.Blink
}

func (m RunnerView) Update(msg tea.Msg) (RunnerView, tea.Cmd) {
	cmds := make([]tea.Cmd, len(m.Inputs))

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			if msg.String() == "up" || msg.String() == "shift+tab" {
				m.Focus--
			} else {
				m.Focus++
			}
			if m.Focus > len(m.Inputs)-1 {
				m.Focus = 0
			} else if m.Focus < 0 {
				m.Focus = len(m.Inputs) - 1
			}

			for i := range m.Inputs {
				if i == m.Focus {
					cmds[i] = m.Inputs[i].Focus()
					m.Inputs[i].PromptStyle = styles.Active
					m.Inputs[i].TextStyle = styles.Active
				} else {
					m.Inputs[i].Blur()
					m.Inputs[i].PromptStyle = lipgloss.NewStyle()
					m.Inputs[i].TextStyle = lipgloss.NewStyle()
				}
			}
			return m, tea.Batch(cmds...)
		}
	}

	for i := range m.Inputs {
		var cmd tea.Cmd
		m.Inputs[i], cmd = m.Inputs[i].Update(msg)
		cmds[i] = cmd
	}
	return m, tea.Batch(cmds...)
}

// GetConfig parses every field back into a RunConfig, falling back to
// the last-known value for any field that doesn't parse.
func (m RunnerView) GetConfig() RunConfig {
	c := m.Base
	c.URL = m.Inputs[fieldURL].Value()

	if v, err := strconv.Atoi(m.Inputs[fieldConnections].Value()); err == nil {
		c.Options.Connections = v
	}
	if v, err := strconv.Atoi(m.Inputs[fieldDepth].Value()); err == nil {
		c.Options.Depth = v
	}
	if v, err := strconv.Atoi(m.Inputs[fieldRecords].Value()); err == nil {
		c.Options.Records = v
	}
	if v, err := strconv.ParseFloat(m.Inputs[fieldLambda].Value(), 64); err == nil {
		c.Options.Lambda = v
	}
	c.Options.IA = m.Inputs[fieldIA].Value()
	if v, err := strconv.ParseFloat(m.Inputs[fieldUpdate].Value(), 64); err == nil {
		c.Options.Update = v
	}
	if v, err := strconv.ParseFloat(m.Inputs[fieldTime].Value(), 64); err == nil {
		c.Options.Time = v
	}
	return c
}

func (m RunnerView) View() string {
	s := strings.Builder{}
	s.WriteString(styles.Title.Render("New Load Test"))
	s.WriteString("\n\n")

	renderField := func(label string, input textinput.Model) {
		s.WriteString(styles.Subtle.Render(label))
		s.WriteString("\n")
		s.WriteString(input.View())
		s.WriteString("\n\n")
	}

	renderField("Target URL", m.Inputs[fieldURL])
	renderField("Connections", m.Inputs[fieldConnections])
	renderField("Depth (outstanding ops/conn)", m.Inputs[fieldDepth])
	renderField("Records (keyspace size)", m.Inputs[fieldRecords])
	renderField("Lambda (mean arrivals/sec, 0 = max)", m.Inputs[fieldLambda])
	renderField("Inter-arrival distribution", m.Inputs[fieldIA])
	renderField("Update probability (POST share)", m.Inputs[fieldUpdate])
	renderField("Duration (s)", m.Inputs[fieldTime])

	s.WriteString(fmt.Sprintf("\n%s\n", styles.ButtonActive.Render("[ ENTER on last field ] Start Test")))
	return s.String()
}
