package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/quasar/mclaunch/internal/api"
	"github.com/quasar/mclaunch/internal/auth"
	"github.com/quasar/mclaunch/internal/core"
	"github.com/quasar/mclaunch/internal/events"
	"github.com/quasar/mclaunch/internal/store"
)

// scriptedAdapter fails for the listed account names and echoes the rest.
type scriptedAdapter struct {
	provider core.ProviderType
	fail     map[string]bool
	calls    []string
}

func (a *scriptedAdapter) Provider() core.ProviderType { return a.provider }

func (a *scriptedAdapter) Refresh(_ context.Context, acc core.Account) (core.Account, error) {
	a.calls = append(a.calls, acc.ID)
	if a.fail[acc.Name] {
		return core.Account{}, &auth.RefreshError{Provider: a.provider, Kind: auth.ErrRejected}
	}
	acc.AccessToken = "fresh-" + acc.Name
	return acc, nil
}

type fixture struct {
	store    *store.Memory
	accounts *core.AccountRepo
	configs  *core.ConfigRepo
	xbox     *scriptedAdapter
	azauth   *scriptedAdapter
	engine   *Engine
	events   <-chan events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.NewMemory()
	f := &fixture{
		store:    s,
		accounts: core.NewAccountRepo(s),
		configs:  core.NewConfigRepo(s),
		xbox:     &scriptedAdapter{provider: core.ProviderXboxLive, fail: map[string]bool{}},
		azauth:   &scriptedAdapter{provider: core.ProviderManagedAuth, fail: map[string]bool{}},
	}
	registry := auth.NewRegistry(nil, f.xbox, f.azauth, auth.MojangAdapter{Client: api.NewMojangClient()})
	bus := events.NewBus()
	f.events = bus.Subscribe(64)
	f.engine = NewEngine(f.accounts, f.configs, registry, bus, nil)
	return f
}

func (f *fixture) add(t *testing.T, acc core.Account) string {
	t.Helper()
	if err := f.accounts.Create(context.Background(), &acc); err != nil {
		t.Fatal(err)
	}
	return acc.ID
}

func (f *fixture) selectAccount(t *testing.T, id string) {
	t.Helper()
	f.configs.Update(context.Background(), func(cfg *core.ClientConfig) (bool, error) {
		cfg.AccountSelected = id
		return true, nil
	})
}

func (f *fixture) selected(t *testing.T) string {
	t.Helper()
	cfg, err := f.configs.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return cfg.AccountSelected
}

func TestReconcile_OfflineScenario(t *testing.T) {
	f := newFixture(t)
	id := f.add(t, core.Account{Name: "Steve", Provider: core.ProviderMojangLegacy})

	res, err := f.engine.ReconcileAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if id != "1" || res.SelectedAccountID != "1" || f.selected(t) != "1" {
		t.Errorf("Expected account 1 selected, got result %+v, stored %q", res, f.selected(t))
	}
	if res.NeedsLogin {
		t.Error("NeedsLogin with a surviving account")
	}
	acc, _ := f.accounts.Get(context.Background(), id)
	if acc.UUID != api.OfflineUUID("Steve").String() {
		t.Errorf("offline identity not re-derived: %+v", acc)
	}
}

func TestReconcile_UnknownProviderEvictedWithoutAdapterCall(t *testing.T) {
	f := newFixture(t)
	bad := f.add(t, core.Account{Name: "Ghost", Provider: "Steam"})
	corrupt, _ := f.store.Create(context.Background(), store.CollectionAccounts, map[string]any{"name": []int{1}})
	f.selectAccount(t, bad)

	res, err := f.engine.ReconcileAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(f.xbox.calls)+len(f.azauth.calls) != 0 {
		t.Errorf("adapters called: xbox %v azauth %v", f.xbox.calls, f.azauth.calls)
	}
	if len(res.Evicted) != 2 || res.Evicted[0] != bad || res.Evicted[1] != corrupt {
		t.Errorf("Evicted = %v", res.Evicted)
	}
	if !res.NeedsLogin || f.selected(t) != "" {
		t.Errorf("Expected empty store routing to login, got %+v selected %q", res, f.selected(t))
	}
}

func TestReconcile_SelectedAccountEvicted(t *testing.T) {
	f := newFixture(t)
	one := f.add(t, core.Account{Name: "Alex", Provider: core.ProviderXboxLive})
	two := f.add(t, core.Account{Name: "Broken", Provider: core.ProviderXboxLive})
	f.selectAccount(t, two)
	f.xbox.fail["Broken"] = true

	res, err := f.engine.ReconcileAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.accounts.Get(context.Background(), two); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("account %s still stored: %v", two, err)
	}
	if f.selected(t) != one || res.SelectedAccountID != one {
		t.Errorf("Expected selection %s, got %q", one, f.selected(t))
	}
	if countKind(f.events, events.AccountSelectionChanged) != 1 {
		t.Error("Expected one account-selection-changed event")
	}
}

func TestReconcile_FailureIsolated(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, core.Account{Name: "First", Provider: core.ProviderManagedAuth})
	b := f.add(t, core.Account{Name: "Second", Provider: core.ProviderManagedAuth})
	c := f.add(t, core.Account{Name: "Third", Provider: core.ProviderXboxLive})
	f.azauth.fail["First"] = true

	res, err := f.engine.ReconcileAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Refreshed) != 2 || res.Refreshed[0] != b || res.Refreshed[1] != c {
		t.Errorf("Refreshed = %v", res.Refreshed)
	}
	if len(res.Evicted) != 1 || res.Evicted[0] != a {
		t.Errorf("Evicted = %v", res.Evicted)
	}
	got, _ := f.accounts.Get(context.Background(), c)
	if got.AccessToken != "fresh-Third" {
		t.Errorf("refresh not persisted: %+v", got)
	}
	if f.selected(t) != b {
		t.Errorf("Expected first survivor %s selected, got %q", b, f.selected(t))
	}
}

func TestReconcile_ClearsStaleErrorMarkers(t *testing.T) {
	f := newFixture(t)
	id := f.add(t, core.Account{Name: "Alex", Provider: core.ProviderXboxLive, Error: true, ErrorMessage: "crashed"})

	if _, err := f.engine.ReconcileAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, _ := f.accounts.Get(context.Background(), id)
	if got.Error || got.ErrorMessage != "" {
		t.Errorf("error markers survived: %+v", got)
	}
}

func TestReconcile_KeepsValidSelection(t *testing.T) {
	f := newFixture(t)
	f.add(t, core.Account{Name: "Alex", Provider: core.ProviderXboxLive})
	two := f.add(t, core.Account{Name: "Steve", Provider: core.ProviderMojangLegacy})
	f.selectAccount(t, two)

	res, err := f.engine.ReconcileAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.SelectedAccountID != two {
		t.Errorf("selection moved to %q", res.SelectedAccountID)
	}
	if countKind(f.events, events.AccountSelectionChanged) != 0 {
		t.Error("unexpected account-selection-changed event")
	}
}

func TestReconcile_DanglingSelectionRepaired(t *testing.T) {
	f := newFixture(t)
	one := f.add(t, core.Account{Name: "Steve", Provider: core.ProviderMojangLegacy})
	f.selectAccount(t, "99")

	res, err := f.engine.ReconcileAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.SelectedAccountID != one {
		t.Errorf("Expected %s, got %q", one, res.SelectedAccountID)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.add(t, core.Account{Name: "Steve", Provider: core.ProviderMojangLegacy})
	f.add(t, core.Account{Name: "Ghost", Provider: "Unknown"})

	first, err := f.engine.ReconcileAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.engine.ReconcileAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.SelectedAccountID != second.SelectedAccountID || len(second.Evicted) != 0 {
		t.Errorf("second pass differs: %+v vs %+v", first, second)
	}
}

func TestReconcile_StoreFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.add(t, core.Account{Name: "Steve", Provider: core.ProviderMojangLegacy})
	f.store.Close()

	if _, err := f.engine.ReconcileAll(context.Background()); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func countKind(ch <-chan events.Event, kind events.Kind) int {
	n := 0
	for {
		select {
		case e := <-ch:
			if e.Kind == kind {
				n++
			}
		default:
			return n
		}
	}
}
