package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quasar/mclaunch/internal/service"
)

// LoginModel asks for an offline nickname or hands off to Microsoft login
type LoginModel struct {
	width  int
	height int

	nickInput  textinput.Model
	err        error
	submitting bool
	canGoBack  bool
}

// NewLoginModel creates the login view. canGoBack allows esc to return home
// when an account already exists.
func NewLoginModel(canGoBack bool) *LoginModel {
	ti := textinput.New()
	ti.Placeholder = "Steve"
	ti.CharLimit = 16
	ti.Width = 24
	ti.Focus()

	return &LoginModel{nickInput: ti, canGoBack: canGoBack}
}

func (m *LoginModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Init implements tea.Model
func (m *LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m *LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoginFailed:
		m.submitting = false
		m.err = msg.Error
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if m.submitting {
				return m, nil
			}
			nick, err := service.ValidateNick(m.nickInput.Value())
			if err != nil {
				m.err = err
				return m, nil
			}
			m.err = nil
			m.submitting = true
			return m, func() tea.Msg { return OfflineLogin{Nick: nick} }
		case "ctrl+o":
			return m, func() tea.Msg { return NavigateToAuth{} }
		case "esc":
			if m.canGoBack {
				return m, func() tea.Msg { return NavigateToHome{} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.nickInput, cmd = m.nickInput.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m *LoginModel) View() string {
	title := TitleStyle.Render("Sign in")

	form := lipgloss.JoinVertical(lipgloss.Left,
		"Offline nickname:",
		m.nickInput.View(),
	)

	var status string
	switch {
	case m.submitting:
		status = SubtleStyle.Render("Signing in...")
	case m.err != nil:
		status = ErrorStyle.Render(m.err.Error())
	}

	items := []string{"[enter] play offline", "[ctrl+o] Microsoft account"}
	if m.canGoBack {
		items = append(items, "[esc] back")
	}
	items = append(items, "[ctrl+c] quit")

	return ContainerStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		BoxStyle.Render(form),
		status,
		"",
		HelpStyle.Render(buildHelpText(items, m.width)),
	))
}
