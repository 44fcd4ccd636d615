package ui

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/quasar/mclaunch/internal/api"
)

type signInPhase int

const (
	phaseRequesting signInPhase = iota // asking Microsoft for a device code
	phaseWaiting                       // user approves in the browser
	phaseLinking                       // Xbox, XSTS and Minecraft exchange
	phaseDone
	phaseFailed
)

// AuthModel runs the Microsoft device-code sign-in. Leaving the screen
// cancels any request still in flight.
type AuthModel struct {
	width  int
	height int

	client *api.AuthClient
	phase  signInPhase
	code   *api.DeviceCode
	name   string
	notice string
	err    error

	ctx    context.Context
	cancel context.CancelFunc

	spinner spinner.Model

	openURL   func(string) error
	clipboard func(string) error
}

func NewAuthModel(client *api.AuthClient) *AuthModel {
	return &AuthModel{
		client:    client,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SelectedStyle)),
		openURL:   openBrowser,
		clipboard: copyToClipboard,
	}
}

func (m *AuthModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.restart())
}

func (m *AuthModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Messages are tagged with the model that started the request, so replies
// to an abandoned sign-in are dropped.
type (
	authCodeMsg struct {
		from *AuthModel
		code *api.DeviceCode
	}
	authTokenMsg struct {
		from  *AuthModel
		token *api.MSATokenResponse
	}
	authFailedMsg struct {
		from *AuthModel
		err  error
	}
	noticeExpiredMsg struct{ from *AuthModel }
)

func (m *AuthModel) restart() tea.Cmd {
	m.Cancel()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.phase = phaseRequesting
	m.code, m.err, m.notice = nil, nil, ""

	ctx := m.ctx
	return func() tea.Msg {
		reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		code, err := m.client.RequestDeviceCode(reqCtx)
		if err != nil {
			return authFailedMsg{from: m, err: err}
		}
		return authCodeMsg{from: m, code: code}
	}
}

// Cancel abandons the sign-in in flight.
func (m *AuthModel) Cancel() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *AuthModel) awaitApproval(code *api.DeviceCode) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		token, err := m.client.PollForToken(ctx, code)
		if err != nil {
			return authFailedMsg{from: m, err: err}
		}
		return authTokenMsg{from: m, token: token}
	}
}

func (m *AuthModel) link(token *api.MSATokenResponse) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		acc, err := m.client.Login(ctx, token)
		if err != nil {
			return authFailedMsg{from: m, err: err}
		}
		return AccountAuthenticated{Account: acc}
	}
}

func (m *AuthModel) copyCode() tea.Cmd {
	if m.code == nil {
		return nil
	}
	if err := m.clipboard(m.code.UserCode); err != nil {
		m.notice = "Copy the code by hand"
	} else {
		m.notice = "Code copied to clipboard"
	}
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg { return noticeExpiredMsg{from: m} })
}

func (m *AuthModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.Cancel()
			return m, func() tea.Msg { return NavigateToLogin{} }
		case "o":
			if m.phase == phaseWaiting {
				m.openURL(m.code.VerificationURI)
			}
		case "c":
			if m.phase == phaseWaiting {
				return m, m.copyCode()
			}
		case "r":
			if m.phase == phaseFailed {
				return m, m.restart()
			}
		}

	case authCodeMsg:
		if msg.from != m {
			return m, nil
		}
		m.code = msg.code
		m.phase = phaseWaiting
		m.openURL(msg.code.VerificationURI)
		return m, tea.Batch(m.awaitApproval(msg.code), m.copyCode())

	case authTokenMsg:
		if msg.from != m {
			return m, nil
		}
		m.phase = phaseLinking
		return m, m.link(msg.token)

	case authFailedMsg:
		if msg.from != m || errors.Is(msg.err, context.Canceled) {
			return m, nil
		}
		m.phase = phaseFailed
		m.err = msg.err
		return m, nil

	case AccountAuthenticated:
		m.phase = phaseDone
		m.name = msg.Account.Name
		return m, nil

	case noticeExpiredMsg:
		if msg.from == m {
			m.notice = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *AuthModel) View() string {
	lines := []string{TitleStyle.Render("Microsoft sign-in"), ""}
	help := "esc back"

	switch m.phase {
	case phaseRequesting:
		lines = append(lines, m.spinner.View()+" Contacting Microsoft...")

	case phaseWaiting:
		lines = append(lines,
			"Open "+SelectedStyle.Render(m.code.VerificationURI)+" and enter:",
			FocusedBoxStyle.Render(m.code.UserCode),
			m.spinner.View()+" Waiting for approval"+m.expiry(),
		)
		if m.notice != "" {
			lines = append(lines, SubtleStyle.Render(m.notice))
		}
		help = "o open browser • c copy code • esc back"

	case phaseLinking:
		lines = append(lines, m.spinner.View()+" Linking your Minecraft profile...")

	case phaseDone:
		lines = append(lines, SuccessStyle.Render("Signed in as "+m.name))
		help = ""

	case phaseFailed:
		lines = append(lines, ErrorStyle.Render("Sign-in failed"), SubtleStyle.Render(m.err.Error()))
		help = "r retry • esc back"
	}

	if help != "" {
		lines = append(lines, "", HelpStyle.Render(help))
	}
	return ContainerStyle.Width(m.width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *AuthModel) expiry() string {
	if m.code == nil || m.code.Expiry.IsZero() {
		return ""
	}
	return SubtleStyle.Render(" (code expires " + humanize.Time(m.code.Expiry) + ")")
}

var browserCommands = map[string][]string{
	"linux":   {"xdg-open"},
	"darwin":  {"open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

func openBrowser(url string) error {
	argv, ok := browserCommands[runtime.GOOS]
	if !ok {
		return errors.New("no browser command for " + runtime.GOOS)
	}
	return exec.Command(argv[0], append(argv[1:], url)...).Start()
}

// Tried in order; the first one installed wins.
var clipboardCommands = map[string][][]string{
	"linux":   {{"wl-copy"}, {"xclip", "-selection", "clipboard"}},
	"darwin":  {{"pbcopy"}},
	"windows": {{"clip"}},
}

func copyToClipboard(text string) error {
	for _, argv := range clipboardCommands[runtime.GOOS] {
		if _, err := exec.LookPath(argv[0]); err != nil {
			continue
		}
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Stdin = strings.NewReader(text)
		return cmd.Run()
	}
	return errors.New("no clipboard command found")
}
