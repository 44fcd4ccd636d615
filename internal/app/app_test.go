package app

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quasar/mclaunch/internal/auth"
	"github.com/quasar/mclaunch/internal/core"
	"github.com/quasar/mclaunch/internal/directory"
	"github.com/quasar/mclaunch/internal/events"
	"github.com/quasar/mclaunch/internal/reconcile"
	"github.com/quasar/mclaunch/internal/selector"
	"github.com/quasar/mclaunch/internal/service"
	"github.com/quasar/mclaunch/internal/store"
	"github.com/quasar/mclaunch/internal/ui"
)

type countingWatcher struct{ starts, stops int }

func (w *countingWatcher) Start(context.Context) { w.starts++ }
func (w *countingWatcher) Stop()                  { w.stops++ }

func newTestModel(t *testing.T) (*Model, *countingWatcher) {
	t.Helper()
	s := store.NewMemory()
	accounts := core.NewAccountRepo(s)
	configs := core.NewConfigRepo(s)
	bus := events.NewBus()
	registry := auth.NewRegistry(nil, auth.Defaults("", "")...)

	svc := service.New(service.Options{
		Accounts:   accounts,
		Configs:    configs,
		Reconciler: reconcile.NewEngine(accounts, configs, registry, bus, nil),
		Directory:  directory.Static{{Name: "Survival"}},
		Selector:   selector.New(configs, bus, nil),
		Bus:        bus,
	})
	w := &countingWatcher{}
	m := New(Deps{Service: svc, Bus: bus, Watcher: w})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, w
}

func TestApp_StartupWithoutAccountsShowsLogin(t *testing.T) {
	m, w := newTestModel(t)

	msg := m.startup()()
	m.Update(msg)
	if m.state != StateLogin {
		t.Fatalf("state = %v, want login", m.state)
	}
	if w.starts != 0 {
		t.Error("watcher started before home")
	}
}

func TestApp_OfflineLoginEntersHome(t *testing.T) {
	m, w := newTestModel(t)
	m.Update(m.startup()())

	_, cmd := m.Update(ui.OfflineLogin{Nick: "Steve"})
	done := cmd()
	if _, ok := done.(ui.ActionDone); !ok {
		t.Fatalf("got %#v, want ActionDone", done)
	}

	_, cmd = m.Update(done)
	if m.state != StateHome {
		t.Fatalf("state = %v, want home", m.state)
	}
	if w.starts != 1 {
		t.Errorf("watcher starts = %d, want 1", w.starts)
	}

	m.Update(cmd())
	if !m.home.HasAccount() {
		t.Error("home should show the new account")
	}

	// Entering home again keeps the single watcher.
	m.Update(ui.NavigateToHome{})
	if w.starts != 1 {
		t.Errorf("watcher starts = %d after re-entering home", w.starts)
	}

	m.Close()
	if w.stops != 1 {
		t.Errorf("watcher stops = %d, want 1", w.stops)
	}
}
