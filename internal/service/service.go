// Package service ties the launcher components into the operations the UI
// and headless tools call: startup, login, logout, account switching,
// instance selection, access codes and launching.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/quasar/mclaunch/internal/api"
	"github.com/quasar/mclaunch/internal/core"
	"github.com/quasar/mclaunch/internal/directory"
	"github.com/quasar/mclaunch/internal/events"
	"github.com/quasar/mclaunch/internal/launch"
	"github.com/quasar/mclaunch/internal/reconcile"
	"github.com/quasar/mclaunch/internal/selector"
)

var (
	ErrNickTooShort  = errors.New("nickname must be at least 3 characters")
	ErrNickHasSpaces = errors.New("nickname cannot contain spaces")
	ErrNoAccount     = errors.New("no account available")
	ErrNoAccessCodes = errors.New("access codes are not configured")
)

// Route is the screen the launcher should show after an operation.
type Route int

const (
	RouteLogin Route = iota
	RouteHome
)

func (r Route) String() string {
	if r == RouteHome {
		return "home"
	}
	return "login"
}

// Reconciler validates every stored account.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (reconcile.Result, error)
}

// Redeemer submits instance access codes.
type Redeemer interface {
	Redeem(ctx context.Context, code, user string) (*api.RedeemResult, error)
}

// Options wires a Service. Access, Launcher, Bus and Logger may be nil.
type Options struct {
	Accounts   *core.AccountRepo
	Configs    *core.ConfigRepo
	Reconciler Reconciler
	Directory  directory.Source
	Selector   *selector.Selector
	Launcher   *launch.Launcher
	Mojang     *api.MojangClient
	Access     Redeemer
	Bus        *events.Bus
	Logger     *slog.Logger
}

// Service is the launcher's application layer.
type Service struct {
	opts    Options
	manager *core.AccountManager
	logger  *slog.Logger
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Mojang == nil {
		opts.Mojang = api.NewMojangClient()
	}
	return &Service{
		opts:    opts,
		manager: core.NewAccountManager(opts.Accounts, opts.Configs),
		logger:  logger,
	}
}

// Home is what the home screen displays.
type Home struct {
	Account   *core.Account
	Accounts  []core.Account
	Instances []core.Instance // accessible to Account
	Selected  string
}

// Startup reconciles the stored accounts and repairs the instance selection.
// It routes to login when no account survives.
func (s *Service) Startup(ctx context.Context) (Route, error) {
	res, err := s.opts.Reconciler.ReconcileAll(ctx)
	if err != nil {
		return RouteLogin, fmt.Errorf("startup: %w", err)
	}
	if res.NeedsLogin || res.SelectedAccountID == "" {
		s.logger.Info("no valid account, login required", "evicted", len(res.Evicted))
		return RouteLogin, nil
	}

	if err := s.Repair(ctx); err != nil {
		return RouteHome, err
	}
	return RouteHome, nil
}

// Repair moves the instance selection to one the selected account may use.
func (s *Service) Repair(ctx context.Context) error {
	acc, err := s.manager.Active(ctx)
	if err != nil {
		return fmt.Errorf("repairing selection: %w", err)
	}
	_, err = s.opts.Selector.Ensure(ctx, acc, s.instances(ctx))
	return err
}

// ValidateNick trims nick and checks the offline login rules. A nick that
// passes is always accepted by the offline provider.
func ValidateNick(nick string) (string, error) {
	nick = strings.TrimSpace(nick)
	switch {
	case utf8.RuneCountInString(nick) < 3:
		return nick, ErrNickTooShort
	case !api.ValidPlayerName(nick):
		return nick, ErrNickHasSpaces
	}
	return nick, nil
}

// LoginOffline creates an offline account for nick and selects it.
func (s *Service) LoginOffline(ctx context.Context, nick string) (*core.Account, error) {
	nick, err := ValidateNick(nick)
	if err != nil {
		return nil, err
	}
	acc, err := s.opts.Mojang.Login(nick)
	if err != nil {
		return nil, err
	}
	return s.CompleteLogin(ctx, acc)
}

// CompleteLogin stores a freshly authenticated account, selects it and
// repairs the instance selection for it.
func (s *Service) CompleteLogin(ctx context.Context, acc core.Account) (*core.Account, error) {
	if err := s.manager.Add(ctx, &acc); err != nil {
		return nil, fmt.Errorf("saving account: %w", err)
	}
	s.logger.Info("login completed", "account", acc.Name, "provider", acc.Provider)
	s.opts.Bus.Publish(events.Event{Kind: events.LoginCompleted, AccountID: acc.ID, AccountName: acc.Name})
	s.opts.Bus.Publish(events.Event{Kind: events.AccountSelectionChanged, AccountID: acc.ID})

	if _, err := s.opts.Selector.Ensure(ctx, &acc, s.instances(ctx)); err != nil {
		return &acc, err
	}
	return &acc, nil
}

// Logout removes the selected account. The next remaining account takes
// over; with none left the launcher returns to login.
func (s *Service) Logout(ctx context.Context) (Route, error) {
	active, err := s.manager.Active(ctx)
	if err != nil {
		return RouteHome, err
	}
	if active == nil {
		return RouteLogin, nil
	}

	next, err := s.manager.Remove(ctx, active.ID)
	if err != nil {
		return RouteHome, fmt.Errorf("logout: %w", err)
	}
	s.logger.Info("logged out", "account", active.Name)

	if next == nil {
		s.opts.Bus.Publish(events.Event{Kind: events.AccountSelectionChanged})
		return RouteLogin, nil
	}
	s.opts.Bus.Publish(events.Event{Kind: events.AccountSelectionChanged, AccountID: next.ID})
	if _, err := s.opts.Selector.Ensure(ctx, next, s.instances(ctx)); err != nil {
		return RouteHome, err
	}
	return RouteHome, nil
}

// SwitchAccount selects the account with id.
func (s *Service) SwitchAccount(ctx context.Context, id string) (*core.Account, error) {
	acc, err := s.manager.SetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	s.opts.Bus.Publish(events.Event{Kind: events.AccountSelectionChanged, AccountID: id})
	if _, err := s.opts.Selector.Ensure(ctx, acc, s.instances(ctx)); err != nil {
		return acc, err
	}
	return acc, nil
}

// Home gathers the home screen state.
func (s *Service) Home(ctx context.Context) (*Home, error) {
	acc, err := s.manager.Active(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.manager.List(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := s.opts.Configs.Load(ctx)
	if err != nil {
		return nil, err
	}
	h := &Home{Account: acc, Accounts: accounts, Selected: cfg.InstanceSelected}
	if acc != nil {
		h.Instances = core.AccessibleInstances(s.instances(ctx), acc.Name)
	}
	return h, nil
}

// AccessibleInstances lists the instances the selected account may use.
func (s *Service) AccessibleInstances(ctx context.Context) ([]core.Instance, error) {
	acc, err := s.manager.Active(ctx)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrNoAccount
	}
	return core.AccessibleInstances(s.instances(ctx), acc.Name), nil
}

// SelectInstance makes name the selected instance.
func (s *Service) SelectInstance(ctx context.Context, name string) error {
	acc, err := s.manager.Active(ctx)
	if err != nil {
		return err
	}
	if acc == nil {
		return ErrNoAccount
	}
	_, err = s.opts.Selector.Select(ctx, name, acc, s.instances(ctx))
	return err
}

// RedeemCode submits an access code for the selected account. When no
// account is selected the first stored one is selected and used.
func (s *Service) RedeemCode(ctx context.Context, code string) (*api.RedeemResult, error) {
	if s.opts.Access == nil {
		return nil, ErrNoAccessCodes
	}
	if !api.ValidAccessCode(code) {
		return nil, fmt.Errorf("%w: %q", api.ErrInvalidCode, code)
	}

	acc, err := s.redeemAccount(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.opts.Access.Redeem(ctx, code, acc.Name)
	if err != nil {
		s.opts.Bus.Notify(events.LevelError, "Could not redeem code: %v", err)
		return nil, err
	}

	switch res.Outcome {
	case api.RedeemGranted:
		s.logger.Info("access code redeemed", "account", acc.Name)
		s.opts.Bus.Notify(events.LevelSuccess, "Code redeemed, new instances unlocked")
		if _, err := s.opts.Selector.Ensure(ctx, acc, s.instances(ctx)); err != nil {
			return res, err
		}
		s.opts.Bus.Publish(events.Event{Kind: events.InstancesChanged})
	case api.RedeemAlreadyOwned:
		s.opts.Bus.Notify(events.LevelInfo, "%s", res.Message)
	default:
		s.logger.Warn("access code refused", "account", acc.Name, "message", res.Message)
		s.opts.Bus.Notify(events.LevelError, "Code refused: %s", res.Message)
	}
	return res, nil
}

func (s *Service) redeemAccount(ctx context.Context) (*core.Account, error) {
	acc, err := s.manager.Active(ctx)
	if err != nil || acc != nil {
		return acc, err
	}
	accounts, err := s.manager.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccount
	}
	acc, err = s.manager.SetActive(ctx, accounts[0].ID)
	if err != nil {
		return nil, err
	}
	s.opts.Bus.Publish(events.Event{Kind: events.AccountSelectionChanged, AccountID: acc.ID})
	return acc, nil
}

// Launch starts the selected instance with the selected account.
func (s *Service) Launch(ctx context.Context, statusChan chan<- launch.Status) error {
	if s.opts.Launcher == nil {
		return errors.New("launch backend is not configured")
	}
	return s.opts.Launcher.Launch(ctx, statusChan)
}

// instances fetches the directory. A failure is logged and reads as an
// empty list, which leaves selections untouched.
func (s *Service) instances(ctx context.Context) []core.Instance {
	if s.opts.Directory == nil {
		return nil
	}
	list, err := s.opts.Directory.Instances(ctx)
	if err != nil {
		s.logger.Warn("fetching instance list failed", "error", err)
		return nil
	}
	return list
}
