package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quasar/mclaunch/internal/launch"
)

const maxLogLines = 8

// LaunchModel shows launch progress
type LaunchModel struct {
	instance string
	width    int
	height   int

	progress progress.Model
	status   launch.Status
	steps    []stepInfo
	logs     []string
	done     bool
	err      error
}

type stepInfo struct {
	name   string
	status string // pending, running, done, error
}

// NewLaunchModel creates a new launch view
func NewLaunchModel(instance string) *LaunchModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
	)

	return &LaunchModel{
		instance: instance,
		progress: p,
		steps: []stepInfo{
			{name: launch.StepPreparing, status: "pending"},
			{name: launch.StepDownloading, status: "pending"},
			{name: launch.StepVerifying, status: "pending"},
			{name: launch.StepPatching, status: "pending"},
			{name: launch.StepPlaying, status: "pending"},
		},
	}
}

// SetSize updates dimensions
func (m *LaunchModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.progress.Width = max(width-10, 10)
}

// Init implements tea.Model
func (m *LaunchModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *LaunchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LaunchStatusUpdate:
		if msg.Status.LogLine != nil {
			m.appendLog(msg.Status.LogLine.Text)
			return m, nil
		}
		m.status = msg.Status
		m.updateSteps()
		return m, m.progress.SetPercent(msg.Status.Progress)

	case LaunchComplete:
		m.done = true
		m.err = msg.Error
		if msg.Error != nil {
			m.markRunning("error")
		} else {
			m.markRunning("done")
		}
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "enter", "q":
			if m.done {
				return m, func() tea.Msg { return NavigateToHome{} }
			}
		}
	}

	return m, nil
}

func (m *LaunchModel) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
}

// updateSteps marks the reported step running and every earlier one done.
// Steps may be skipped, so the order comes from the list, not the events.
func (m *LaunchModel) updateSteps() {
	idx := -1
	for i := range m.steps {
		if m.steps[i].name == m.status.Step {
			idx = i
		}
	}
	if idx < 0 {
		return
	}
	for i := range m.steps {
		switch {
		case i < idx:
			m.steps[i].status = "done"
		case i == idx:
			m.steps[i].status = "running"
		}
	}
}

func (m *LaunchModel) markRunning(status string) {
	for i := range m.steps {
		if m.steps[i].status == "running" {
			m.steps[i].status = status
		}
	}
}

// View implements tea.Model
func (m *LaunchModel) View() string {
	header := TitleStyle.Render(fmt.Sprintf("Launching: %s", m.instance))

	var stepsView strings.Builder
	for _, step := range m.steps {
		var icon string
		var style lipgloss.Style
		switch step.status {
		case "done":
			icon = "✓"
			style = lipgloss.NewStyle().Foreground(ColorAccent)
		case "running":
			icon = "◐"
			style = lipgloss.NewStyle().Foreground(ColorWarning)
		case "error":
			icon = "✗"
			style = lipgloss.NewStyle().Foreground(ColorError)
		default:
			icon = "○"
			style = lipgloss.NewStyle().Foreground(ColorMuted)
		}
		stepsView.WriteString(style.Render(fmt.Sprintf("%s %s", icon, step.name)))
		stepsView.WriteString("\n")
	}

	statusMsg := SubtleStyle.Render(m.status.Message)
	logView := HelpStyle.Render(strings.Join(m.logs, "\n"))

	var footer string
	switch {
	case m.done && m.err != nil:
		footer = ErrorStyle.Render(fmt.Sprintf("\n✗ Failed: %v\n\nPress Enter to go back", m.err))
	case m.done:
		footer = SuccessStyle.Render("\n✓ Game closed\n\nPress Enter to go back")
	default:
		footer = HelpStyle.Render("\n[Ctrl+C] Quit")
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		m.progress.View(),
		"",
		stepsView.String(),
		statusMsg,
		logView,
		footer,
	)
}
