// Package ui contains all TUI view components.
// Each view is a Bubbletea model that can be composed into the main app.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/quasar/mclaunch/internal/core"
	"github.com/quasar/mclaunch/internal/events"
	"github.com/quasar/mclaunch/internal/service"
)

// HomeModel lists the instances the selected account may play
type HomeModel struct {
	list    list.Model
	home    *service.Home
	width   int
	height  int
	keys    homeKeyMap
	loading bool
	err     error

	notice      string
	noticeLevel events.Level

	redeeming bool
	code      textinput.Model
}

type homeKeyMap struct {
	Launch  key.Binding
	Select  key.Binding
	Account key.Binding
	Add     key.Binding
	Logout  key.Binding
	Redeem  key.Binding
}

func defaultHomeKeyMap() homeKeyMap {
	return homeKeyMap{
		Launch: key.NewBinding(
			key.WithKeys("enter", "l"),
			key.WithHelp("enter", "play"),
		),
		Select: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "select"),
		),
		Account: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "switch account"),
		),
		Add: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "add account"),
		),
		Logout: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "logout"),
		),
		Redeem: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "redeem code"),
		),
	}
}

// instanceItem represents a game instance in the list
type instanceItem struct {
	instance core.Instance
	selected bool
}

func (i instanceItem) Title() string {
	if i.selected {
		return i.instance.Name + " ★"
	}
	return i.instance.Name
}

func (i instanceItem) Description() string {
	access := "Open"
	if i.instance.WhitelistActive {
		access = "Whitelist"
	}
	if i.instance.Status != "" {
		return fmt.Sprintf("%s • %s", access, i.instance.Status)
	}
	return access
}

func (i instanceItem) FilterValue() string { return i.instance.Name }

// NewHomeModel creates a new home view model
func NewHomeModel() *HomeModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorPrimary).
		BorderLeftForeground(ColorPrimary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSecondary).
		BorderLeftForeground(ColorPrimary)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "🎮 Instances"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = TitleStyle
	l.SetShowHelp(false)

	code := textinput.New()
	code.Placeholder = "access code"
	code.CharLimit = 64

	return &HomeModel{
		list:    l,
		keys:    defaultHomeKeyMap(),
		loading: true,
		code:    code,
	}
}

// SetHome replaces the displayed state
func (m *HomeModel) SetHome(h *service.Home) {
	m.home = h
	m.loading = false

	items := make([]list.Item, len(h.Instances))
	cursor := 0
	for i, inst := range h.Instances {
		items[i] = instanceItem{instance: inst, selected: inst.Name == h.Selected}
		if inst.Name == h.Selected {
			cursor = i
		}
	}
	m.list.SetItems(items)
	m.list.Select(cursor)
}

// HasAccount reports whether an account is selected
func (m *HomeModel) HasAccount() bool {
	return m.home != nil && m.home.Account != nil
}

// HighlightedInstance returns the instance under the cursor
func (m *HomeModel) HighlightedInstance() *core.Instance {
	if item, ok := m.list.SelectedItem().(instanceItem); ok {
		return &item.instance
	}
	return nil
}

// SetNotice shows a one-line message above the help
func (m *HomeModel) SetNotice(level events.Level, text string) {
	m.noticeLevel = level
	m.notice = text
}

// SetSize updates the dimensions of the home view
func (m *HomeModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-6)
}

// Init implements tea.Model
func (m *HomeModel) Init() tea.Cmd {
	return nil
}

// nextAccount returns the account after the selected one, wrapping around
func (m *HomeModel) nextAccount() (core.Account, bool) {
	if m.home == nil || len(m.home.Accounts) < 2 {
		return core.Account{}, false
	}
	for i, acc := range m.home.Accounts {
		if m.home.Account != nil && acc.ID == m.home.Account.ID {
			return m.home.Accounts[(i+1)%len(m.home.Accounts)], true
		}
	}
	return m.home.Accounts[0], true
}

// Update implements tea.Model
func (m *HomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case HomeLoaded:
		m.err = msg.Error
		if msg.Error == nil {
			m.SetHome(msg.Home)
		}
		return m, nil

	case BusEvent:
		switch e := msg.Event; e.Kind {
		case events.Notice:
			m.SetNotice(e.Level, e.Text)
		case events.WhitelistAccessRevoked:
			m.SetNotice(events.LevelWarn, fmt.Sprintf("Access to %s was revoked, switched to %s", e.OldInstance, e.NewInstance))
		}
		return m, nil

	case tea.KeyMsg:
		if m.redeeming {
			return m.updateRedeem(msg)
		}
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Launch):
			if inst := m.HighlightedInstance(); inst != nil {
				name := inst.Name
				return m, func() tea.Msg { return NavigateToLaunch{Instance: name} }
			}
		case key.Matches(msg, m.keys.Select):
			if inst := m.HighlightedInstance(); inst != nil {
				name := inst.Name
				return m, func() tea.Msg { return SelectInstance{Name: name} }
			}
		case key.Matches(msg, m.keys.Account):
			if acc, ok := m.nextAccount(); ok {
				return m, func() tea.Msg { return SwitchAccount{ID: acc.ID} }
			}
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return NavigateToLogin{} }
		case key.Matches(msg, m.keys.Logout):
			return m, func() tea.Msg { return Logout{} }
		case key.Matches(msg, m.keys.Redeem):
			m.redeeming = true
			m.code.SetValue("")
			return m, m.code.Focus()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *HomeModel) updateRedeem(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.redeeming = false
		m.code.Blur()
		return m, nil
	case "enter":
		code := strings.TrimSpace(m.code.Value())
		m.redeeming = false
		m.code.Blur()
		if code == "" {
			return m, nil
		}
		return m, func() tea.Msg { return RedeemCode{Code: code} }
	}
	var cmd tea.Cmd
	m.code, cmd = m.code.Update(msg)
	return m, cmd
}

func (m *HomeModel) accountLine() string {
	if m.home == nil || m.home.Account == nil {
		return HelpStyle.Render("No account selected")
	}
	acc := m.home.Account
	mode := string(acc.Provider)
	if acc.Provider == core.ProviderMojangLegacy && !acc.Online {
		mode = "offline"
	}
	return lipgloss.NewStyle().Foreground(ColorSubtle).
		Render(fmt.Sprintf("Playing as %s (%s)", SelectedStyle.Render(acc.Name), mode))
}

func (m *HomeModel) noticeLine() string {
	if m.notice == "" {
		return ""
	}
	text := m.notice
	if m.width > 0 {
		text = ansi.Truncate(text, m.width, "…")
	}
	switch m.noticeLevel {
	case events.LevelSuccess:
		return SuccessStyle.Render(text)
	case events.LevelWarn:
		return WarningStyle.Render(text)
	case events.LevelError:
		return ErrorStyle.Render(text)
	default:
		return SubtleStyle.Render(text)
	}
}

// View implements tea.Model
func (m *HomeModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Render("Loading instances...")
	}

	sections := []string{m.accountLine(), ""}

	if m.err != nil {
		sections = append(sections, ErrorStyle.Render(ansi.Truncate(m.err.Error(), max(m.width, 20), "…")))
	}

	if len(m.list.Items()) == 0 {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Render("No instances available. Press 'r' to redeem an access code."))
	} else {
		sections = append(sections, m.list.View())
	}

	if notice := m.noticeLine(); notice != "" {
		sections = append(sections, notice)
	}
	if m.redeeming {
		sections = append(sections, "Code: "+m.code.View())
	}

	items := []string{"[enter] play", "[s] select", "[r] redeem code", "[n] add account", "[x] logout"}
	if m.home != nil && len(m.home.Accounts) > 1 {
		items = append(items, "[a] switch account")
	}
	items = append(items, "[q] quit")
	sections = append(sections, HelpStyle.Render(buildHelpText(items, m.width)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

const defaultHelpWidth = 80

// buildHelpText joins items with " • ", starting a new line whenever the
// next item would overflow width. Items are never split. Width counts
// bytes, which bounds the display width of the separator.
func buildHelpText(items []string, width int) string {
	if len(items) == 0 {
		return ""
	}
	if width <= 0 {
		width = defaultHelpWidth
	}

	const sep = " • "
	var lines []string
	current := items[0]
	for _, item := range items[1:] {
		if len(current)+len(sep)+len(item) > width {
			lines = append(lines, current)
			current = item
			continue
		}
		current += sep + item
	}
	lines = append(lines, current)
	return strings.Join(lines, "\n")
}
