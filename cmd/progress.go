package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/airframesio/databricks-mcp/cmd/comparator"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	doneStepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// progressModel shows a spinner and the completed steps of a comparison run.
type progressModel struct {
	title   string
	spinner spinner.Model
	phase   comparator.Phase
	stage   string
	steps   []string
	err     error
	done    bool
	cancel  context.CancelFunc
}

// phaseMsg carries a comparator event into the program
type phaseMsg comparator.Event

// finishedMsg is sent once the comparison returned
type finishedMsg struct {
	err error
}

func newProgressModel(title string, cancel context.CancelFunc) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return progressModel{
		title:   title,
		spinner: s,
		cancel:  cancel,
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case phaseMsg:
		return m.handlePhaseMsg(msg)
	case finishedMsg:
		m.err = msg.err
		m.done = true
		if m.stage != "" && msg.err == nil {
			m.steps = append(m.steps, m.stage)
			m.stage = ""
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" || msg.String() == "q" {
		if m.cancel != nil {
			m.cancel()
		}
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) handlePhaseMsg(msg phaseMsg) (tea.Model, tea.Cmd) {
	m.phase = msg.Phase
	switch msg.Phase {
	case comparator.PhaseFailed:
		m.err = msg.Err
	case comparator.PhaseDone:
		if m.stage != "" {
			m.steps = append(m.steps, m.stage)
		}
		m.stage = ""
	default:
		if m.stage != "" {
			m.steps = append(m.steps, m.stage)
		}
		m.stage = msg.Message
	}
	return m, nil
}

func (m progressModel) View() string {
	sections := []string{"", "   " + titleStyle.Render(m.title), ""}

	for _, step := range m.steps {
		sections = append(sections, doneStepStyle.Render("   ✓ "+step))
	}

	switch {
	case m.err != nil:
		sections = append(sections, "   "+errorStyle.Render("✗ "+m.err.Error()))
	case m.stage != "":
		sections = append(sections, stageStyle.Render(fmt.Sprintf("   %s %s", m.spinner.View(), m.stage)))
	case !m.done:
		sections = append(sections, stageStyle.Render("   "+m.spinner.View()+" Initializing..."))
	}

	if !m.done {
		sections = append(sections, "", helpStyle.Render("   Press q or ctrl+c to cancel"))
	}
	sections = append(sections, "")

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// runWithProgress runs fn while a spinner on stderr follows the events it
// reports. fn's error is returned unchanged.
func runWithProgress(ctx context.Context, title string, fn func(ctx context.Context, observe comparator.Observer) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(title, cancel), tea.WithOutput(os.Stderr))

	errCh := make(chan error, 1)
	go func() {
		err := fn(ctx, func(ev comparator.Event) {
			p.Send(phaseMsg(ev))
		})
		errCh <- err
		p.Send(finishedMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		logger.Debug(fmt.Sprintf("Progress display failed: %v", err))
	}

	return <-errCh
}
