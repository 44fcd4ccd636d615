package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quasar/mclaunch/internal/api"
	"github.com/quasar/mclaunch/internal/auth"
	"github.com/quasar/mclaunch/internal/core"
	"github.com/quasar/mclaunch/internal/directory"
	"github.com/quasar/mclaunch/internal/events"
	"github.com/quasar/mclaunch/internal/reconcile"
	"github.com/quasar/mclaunch/internal/selector"
	"github.com/quasar/mclaunch/internal/store"
)

var (
	survival = core.Instance{Name: "Survival"}
	vip      = core.Instance{Name: "VIP", WhitelistActive: true, Whitelist: []string{"Alex"}}
)

// rejectingAdapter refuses every refresh.
type rejectingAdapter struct{ provider core.ProviderType }

func (a rejectingAdapter) Provider() core.ProviderType { return a.provider }

func (a rejectingAdapter) Refresh(context.Context, core.Account) (core.Account, error) {
	return core.Account{}, &auth.RefreshError{Provider: a.provider, Kind: auth.ErrRejected}
}

type stubRedeemer struct {
	result *api.RedeemResult
	user   string
}

func (r *stubRedeemer) Redeem(_ context.Context, _, user string) (*api.RedeemResult, error) {
	r.user = user
	return r.result, nil
}

type fixture struct {
	svc      *Service
	accounts *core.AccountRepo
	configs  *core.ConfigRepo
	events   <-chan events.Event
}

func newFixture(t *testing.T, source directory.Source, access Redeemer) *fixture {
	t.Helper()
	s := store.NewMemory()
	accounts := core.NewAccountRepo(s)
	configs := core.NewConfigRepo(s)
	bus := events.NewBus()
	registry := auth.NewRegistry(nil,
		rejectingAdapter{provider: core.ProviderXboxLive},
		auth.MojangAdapter{Client: api.NewMojangClient()},
	)
	f := &fixture{accounts: accounts, configs: configs, events: bus.Subscribe(64)}
	f.svc = New(Options{
		Accounts:   accounts,
		Configs:    configs,
		Reconciler: reconcile.NewEngine(accounts, configs, registry, bus, nil),
		Directory:  source,
		Selector:   selector.New(configs, bus, nil),
		Access:     access,
		Bus:        bus,
	})
	return f
}

func (f *fixture) config(t *testing.T) *core.ClientConfig {
	t.Helper()
	cfg, err := f.configs.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func (f *fixture) drain() []events.Event {
	var out []events.Event
	for {
		select {
		case e := <-f.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func hasKind(evs []events.Event, k events.Kind) bool {
	for _, e := range evs {
		if e.Kind == k {
			return true
		}
	}
	return false
}

func TestLoginOffline_SelectsOpenInstance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, directory.Static{vip, survival}, nil)

	acc, err := f.svc.LoginOffline(ctx, "Steve")
	if err != nil {
		t.Fatalf("LoginOffline failed: %v", err)
	}
	if acc.UUID != "5627dd98-e6be-3c21-b8a8-e92344183641" {
		t.Errorf("UUID = %s", acc.UUID)
	}

	cfg := f.config(t)
	if cfg.AccountSelected != acc.ID {
		t.Errorf("AccountSelected = %q, want %q", cfg.AccountSelected, acc.ID)
	}
	if cfg.InstanceSelected != "Survival" {
		t.Errorf("InstanceSelected = %q, want Survival", cfg.InstanceSelected)
	}

	evs := f.drain()
	if !hasKind(evs, events.LoginCompleted) || !hasKind(evs, events.AccountSelectionChanged) {
		t.Errorf("missing login events: %+v", evs)
	}

	list, err := f.svc.AccessibleInstances(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "Survival" {
		t.Errorf("AccessibleInstances = %+v", list)
	}
}

func TestLoginOffline_Validation(t *testing.T) {
	f := newFixture(t, directory.Static{survival}, nil)
	tests := []struct {
		nick string
		want error
	}{
		{"ab", ErrNickTooShort},
		{"  ab ", ErrNickTooShort},
		{"Big Steve", ErrNickHasSpaces},
		{"Big\tSteve", ErrNickHasSpaces},
	}
	for _, tt := range tests {
		t.Run(tt.nick, func(t *testing.T) {
			_, err := f.svc.LoginOffline(context.Background(), tt.nick)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoginOffline_NameSurvivesReconcile(t *testing.T) {
	ctx := context.Background()
	for _, nick := range []string{"Dark-Ken", "Señor", "ThisNameIsLongerThan16"} {
		t.Run(nick, func(t *testing.T) {
			f := newFixture(t, directory.Static{survival}, nil)
			acc, err := f.svc.LoginOffline(ctx, nick)
			if err != nil {
				t.Fatalf("LoginOffline failed: %v", err)
			}

			route, err := f.svc.Startup(ctx)
			if err != nil {
				t.Fatalf("Startup failed: %v", err)
			}
			if route != RouteHome {
				t.Errorf("route = %v, want home", route)
			}
			if _, err := f.accounts.Get(ctx, acc.ID); err != nil {
				t.Errorf("account evicted: %v", err)
			}
			if got := f.config(t).AccountSelected; got != acc.ID {
				t.Errorf("AccountSelected = %q, want %q", got, acc.ID)
			}
		})
	}
}

func TestStartup_EvictsRejectedAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, directory.Static{survival}, nil)

	xbox := core.Account{Name: "Alex", Provider: core.ProviderXboxLive}
	f.accounts.Create(ctx, &xbox)
	steve, _ := api.NewMojangClient().Login("Steve")
	f.accounts.Create(ctx, &steve)
	f.configs.Update(ctx, func(cfg *core.ClientConfig) (bool, error) {
		cfg.AccountSelected = xbox.ID
		return true, nil
	})

	route, err := f.svc.Startup(ctx)
	if err != nil {
		t.Fatalf("Startup failed: %v", err)
	}
	if route != RouteHome {
		t.Errorf("route = %v, want home", route)
	}

	cfg := f.config(t)
	if cfg.AccountSelected != steve.ID || cfg.InstanceSelected != "Survival" {
		t.Errorf("selection = %q/%q", cfg.AccountSelected, cfg.InstanceSelected)
	}
	if _, err := f.accounts.Get(ctx, xbox.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("rejected account still stored: %v", err)
	}
}

func TestStartup_NoAccounts(t *testing.T) {
	f := newFixture(t, directory.Static{survival}, nil)
	route, err := f.svc.Startup(context.Background())
	if err != nil || route != RouteLogin {
		t.Errorf("Startup = %v, %v", route, err)
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, directory.Static{vip, survival}, nil)

	steve, _ := f.svc.LoginOffline(ctx, "Steve")
	alex, _ := f.svc.LoginOffline(ctx, "Alex")
	if err := f.svc.SelectInstance(ctx, "VIP"); err != nil {
		t.Fatalf("SelectInstance failed: %v", err)
	}

	route, err := f.svc.Logout(ctx)
	if err != nil || route != RouteHome {
		t.Fatalf("Logout = %v, %v", route, err)
	}
	cfg := f.config(t)
	if cfg.AccountSelected != steve.ID {
		t.Errorf("AccountSelected = %q, want %q", cfg.AccountSelected, steve.ID)
	}
	if cfg.InstanceSelected != "Survival" {
		t.Errorf("Steve left on %q", cfg.InstanceSelected)
	}
	if _, err := f.accounts.Get(ctx, alex.ID); !errors.Is(err, store.ErrNotFound) {
		t.Error("logged-out account still stored")
	}

	route, err = f.svc.Logout(ctx)
	if err != nil || route != RouteLogin {
		t.Errorf("last Logout = %v, %v", route, err)
	}
	if cfg := f.config(t); cfg.AccountSelected != "" {
		t.Errorf("AccountSelected = %q after last logout", cfg.AccountSelected)
	}
}

func TestSwitchAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, directory.Static{vip, survival}, nil)

	steve, _ := f.svc.LoginOffline(ctx, "Steve")
	f.svc.LoginOffline(ctx, "Alex")
	f.svc.SelectInstance(ctx, "VIP")

	if _, err := f.svc.SwitchAccount(ctx, steve.ID); err != nil {
		t.Fatal(err)
	}
	if cfg := f.config(t); cfg.InstanceSelected != "Survival" {
		t.Errorf("InstanceSelected = %q after switching to Steve", cfg.InstanceSelected)
	}
	if _, err := f.svc.SwitchAccount(ctx, "missing"); !errors.Is(err, core.ErrAccountNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestSelectInstance_NotWhitelisted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, directory.Static{vip, survival}, nil)
	f.svc.LoginOffline(ctx, "Steve")

	if err := f.svc.SelectInstance(ctx, "VIP"); !errors.Is(err, selector.ErrNotWhitelisted) {
		t.Errorf("err = %v", err)
	}
}

func TestRedeemCode(t *testing.T) {
	ctx := context.Background()
	redeemer := &stubRedeemer{result: &api.RedeemResult{Outcome: api.RedeemGranted}}
	f := newFixture(t, directory.Static{survival}, redeemer)

	steve, _ := api.NewMojangClient().Login("Steve")
	f.accounts.Create(ctx, &steve)

	if _, err := f.svc.RedeemCode(ctx, "bad code!"); !errors.Is(err, api.ErrInvalidCode) {
		t.Errorf("err = %v", err)
	}

	res, err := f.svc.RedeemCode(ctx, "VIP2024")
	if err != nil {
		t.Fatalf("RedeemCode failed: %v", err)
	}
	if res.Outcome != api.RedeemGranted || redeemer.user != "Steve" {
		t.Errorf("res = %+v, user = %q", res, redeemer.user)
	}
	if cfg := f.config(t); cfg.AccountSelected != steve.ID {
		t.Error("first account should be selected for redemption")
	}
	if !hasKind(f.drain(), events.InstancesChanged) {
		t.Error("missing instances-changed event")
	}
}

func TestRedeemCode_AgainstBackend(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["codigo"] != "ABC123" || body["usuario"] != "Steve" {
			t.Errorf("body = %v", body)
		}
		w.Write([]byte(`{"status":"error","message":"Ya tienes acceso a esta instancia"}`))
	}))
	defer server.Close()

	f := newFixture(t, directory.Static{survival}, api.NewAccessClient(server.URL, nil))
	f.svc.LoginOffline(ctx, "Steve")

	res, err := f.svc.RedeemCode(ctx, "ABC123")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != api.RedeemAlreadyOwned {
		t.Errorf("Outcome = %v", res.Outcome)
	}
	if hasKind(f.drain(), events.InstancesChanged) {
		t.Error("instances-changed emitted for an owned code")
	}
}

func TestRedeemCode_NoAccount(t *testing.T) {
	f := newFixture(t, directory.Static{survival}, &stubRedeemer{})
	if _, err := f.svc.RedeemCode(context.Background(), "ABC"); !errors.Is(err, ErrNoAccount) {
		t.Errorf("err = %v", err)
	}
}

func TestHome(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, directory.Static{vip, survival}, nil)
	f.svc.LoginOffline(ctx, "Alex")

	h, err := f.svc.Home(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if h.Account == nil || h.Account.Name != "Alex" || len(h.Instances) != 2 || h.Selected != "Survival" {
		t.Errorf("home = %+v", h)
	}
}
