// Package app contains the main Bubbletea application model.
// This is the central hub that manages app state and delegates to child views.
package app

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/quasar/mclaunch/internal/api"
	"github.com/quasar/mclaunch/internal/events"
	"github.com/quasar/mclaunch/internal/launch"
	"github.com/quasar/mclaunch/internal/service"
	"github.com/quasar/mclaunch/internal/ui"
)

// State represents the current view/screen of the application
type State int

const (
	StateLoading State = iota
	StateLogin
	StateAuth
	StateHome
	StateLaunch
)

// Watcher polls the instance directory while the home screen is in use.
type Watcher interface {
	Start(ctx context.Context)
	Stop()
}

// Deps are the services the app drives.
type Deps struct {
	Service *service.Service
	Bus     *events.Bus
	Watcher Watcher
	Auth    *api.AuthClient
	Logger  *slog.Logger
}

// Model is the main application model
type Model struct {
	state  State
	width  int
	height int

	// Child models for each view
	home   *ui.HomeModel
	login  *ui.LoginModel
	auth   *ui.AuthModel
	launch *ui.LaunchModel

	deps    Deps
	logger  *slog.Logger
	events  <-chan events.Event
	watchOn bool

	// Launch state
	launchStatusChan chan launch.Status
	launchCtxCancel  context.CancelFunc

	// Key bindings
	keys keyMap

	// Shared state
	ready bool
}

// keyMap defines the keybindings for the app
type keyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// New creates a new application model
func New(deps Deps) *Model {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Model{
		state:  StateLoading,
		home:   ui.NewHomeModel(),
		deps:   deps,
		logger: logger,
		events: deps.Bus.Subscribe(32),
		keys:   defaultKeyMap(),
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.startup(),
		m.waitForEvent(),
	)
}

// Close stops background work. Safe to call more than once.
func (m *Model) Close() {
	if m.launchCtxCancel != nil {
		m.launchCtxCancel()
	}
	if m.auth != nil {
		m.auth.Cancel()
	}
	if m.deps.Watcher != nil {
		m.deps.Watcher.Stop()
	}
	m.watchOn = false
}

func (m *Model) startup() tea.Cmd {
	return func() tea.Msg {
		route, err := m.deps.Service.Startup(context.Background())
		return ui.StartupDone{Route: route, Error: err}
	}
}

func (m *Model) loadHome() tea.Cmd {
	return func() tea.Msg {
		h, err := m.deps.Service.Home(context.Background())
		return ui.HomeLoaded{Home: h, Error: err}
	}
}

// waitForEvent relays the next bus event as a tea message
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.events
		if !ok {
			return nil
		}
		return ui.BusEvent{Event: e}
	}
}

// action runs fn and reports its outcome as ActionDone
func action(route service.Route, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return ui.ActionDone{Route: route, Error: fn(context.Background())}
	}
}

func (m *Model) enterHome() tea.Cmd {
	m.state = StateHome
	if !m.watchOn && m.deps.Watcher != nil {
		m.deps.Watcher.Start(context.Background())
		m.watchOn = true
	}
	return m.loadHome()
}

func (m *Model) enterLogin() tea.Cmd {
	m.state = StateLogin
	m.login = ui.NewLoginModel(m.home.HasAccount())
	m.login.SetSize(m.width, m.height)
	return m.login.Init()
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		// Propagate size to child models
		m.home.SetSize(msg.Width, msg.Height)
		if m.login != nil {
			m.login.SetSize(msg.Width, msg.Height)
		}
		if m.auth != nil {
			m.auth.SetSize(msg.Width, msg.Height)
		}
		if m.launch != nil {
			m.launch.SetSize(msg.Width, msg.Height)
		}

	case ui.StartupDone:
		if msg.Error != nil {
			m.logger.Error("startup failed", "error", msg.Error)
			m.home.SetNotice(events.LevelError, msg.Error.Error())
		}
		if msg.Route == service.RouteHome {
			return m, m.enterHome()
		}
		return m, m.enterLogin()

	// Navigation messages
	case ui.NavigateToHome:
		return m, m.enterHome()

	case ui.NavigateToLogin:
		return m, m.enterLogin()

	case ui.NavigateToAuth:
		if m.deps.Auth == nil {
			return m, nil
		}
		m.state = StateAuth
		m.auth = ui.NewAuthModel(m.deps.Auth)
		m.auth.SetSize(m.width, m.height)
		return m, m.auth.Init()

	case ui.NavigateToLaunch:
		m.state = StateLaunch
		m.launch = ui.NewLaunchModel(msg.Instance)
		m.launch.SetSize(m.width, m.height)
		return m, tea.Batch(
			m.launch.Init(),
			m.startLaunch(msg.Instance),
		)

	// Intents
	case ui.OfflineLogin:
		nick := msg.Nick
		return m, func() tea.Msg {
			if _, err := m.deps.Service.LoginOffline(context.Background(), nick); err != nil {
				return ui.LoginFailed{Error: err}
			}
			return ui.ActionDone{Route: service.RouteHome}
		}

	case ui.AccountAuthenticated:
		if m.auth != nil {
			m.auth.Update(msg)
		}
		acc := msg.Account
		return m, action(service.RouteHome, func(ctx context.Context) error {
			_, err := m.deps.Service.CompleteLogin(ctx, acc)
			return err
		})

	case ui.SelectInstance:
		name := msg.Name
		return m, action(service.RouteHome, func(ctx context.Context) error {
			return m.deps.Service.SelectInstance(ctx, name)
		})

	case ui.SwitchAccount:
		id := msg.ID
		return m, action(service.RouteHome, func(ctx context.Context) error {
			_, err := m.deps.Service.SwitchAccount(ctx, id)
			return err
		})

	case ui.RedeemCode:
		code := msg.Code
		return m, action(service.RouteHome, func(ctx context.Context) error {
			_, err := m.deps.Service.RedeemCode(ctx, code)
			return err
		})

	case ui.Logout:
		return m, func() tea.Msg {
			route, err := m.deps.Service.Logout(context.Background())
			return ui.ActionDone{Route: route, Error: err}
		}

	case ui.ActionDone:
		if msg.Error != nil {
			m.logger.Warn("action failed", "error", msg.Error)
			m.home.SetNotice(events.LevelError, msg.Error.Error())
		}
		if msg.Route == service.RouteLogin {
			m.home = ui.NewHomeModel()
			m.home.SetSize(m.width, m.height)
			return m, m.enterLogin()
		}
		return m, m.enterHome()

	case ui.BusEvent:
		cmds = append(cmds, m.waitForEvent())
		m.home.Update(msg)
		switch msg.Event.Kind {
		case events.InstanceSelectionChanged, events.AccountSelectionChanged,
			events.InstancesChanged, events.WhitelistAccessRevoked:
			if m.state == StateHome {
				cmds = append(cmds, m.loadHome())
			}
		}
		return m, tea.Batch(cmds...)

	// Launch status updates - continue subscription
	case ui.LaunchStatusUpdate:
		if m.launch != nil {
			m.launch.Update(msg)
		}
		return m, m.waitForLaunchStatus()

	case ui.LaunchComplete:
		if m.launch != nil {
			m.launch.Update(msg)
		}
		m.launchStatusChan = nil
		if m.launchCtxCancel != nil {
			m.launchCtxCancel()
			m.launchCtxCancel = nil
		}
		return m, nil

	// Global key handlers
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.ForceQuit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Quit):
			if m.state == StateHome {
				return m, tea.Quit
			}
		}
	}

	// Delegate to current view
	switch m.state {
	case StateHome:
		newHome, cmd := m.home.Update(msg)
		m.home = newHome.(*ui.HomeModel)
		cmds = append(cmds, cmd)

	case StateLogin:
		if m.login != nil {
			newLogin, cmd := m.login.Update(msg)
			m.login = newLogin.(*ui.LoginModel)
			cmds = append(cmds, cmd)
		}

	case StateAuth:
		if m.auth != nil {
			newAuth, cmd := m.auth.Update(msg)
			m.auth = newAuth.(*ui.AuthModel)
			cmds = append(cmds, cmd)
		}

	case StateLaunch:
		if m.launch != nil {
			newLaunch, cmd := m.launch.Update(msg)
			m.launch = newLaunch.(*ui.LaunchModel)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) startLaunch(instance string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.launchCtxCancel = cancel
	m.launchStatusChan = make(chan launch.Status, 64)
	statusChan := m.launchStatusChan

	return func() tea.Msg {
		if err := m.deps.Service.SelectInstance(ctx, instance); err != nil {
			close(statusChan)
			return ui.LaunchComplete{Error: err}
		}

		go func() {
			if err := m.deps.Service.Launch(ctx, statusChan); err != nil {
				m.logger.Warn("launch ended with error", "instance", instance, "error", err)
			}
			close(statusChan)
		}()

		return m.waitForLaunchStatus()()
	}
}

// waitForLaunchStatus creates a command that waits for the next launch status
func (m *Model) waitForLaunchStatus() tea.Cmd {
	statusChan := m.launchStatusChan
	return func() tea.Msg {
		if statusChan == nil {
			return ui.LaunchComplete{}
		}

		status, ok := <-statusChan
		if !ok {
			return ui.LaunchComplete{}
		}

		if status.Error != nil {
			return ui.LaunchComplete{Error: status.Error}
		}

		if status.IsComplete {
			return ui.LaunchComplete{}
		}

		return ui.LaunchStatusUpdate{Status: status}
	}
}

// View implements tea.Model
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	// Delegate to current view
	switch m.state {
	case StateLoading:
		return "Checking accounts..."
	case StateHome:
		return m.home.View()
	case StateLogin:
		if m.login != nil {
			return m.login.View()
		}
	case StateAuth:
		if m.auth != nil {
			return m.auth.View()
		}
	case StateLaunch:
		if m.launch != nil {
			return m.launch.View()
		}
	}

	return "Unknown state"
}
