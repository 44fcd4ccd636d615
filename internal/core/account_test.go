package core

import (
	"context"
	"testing"
	"time"

	"github.com/quasar/mclaunch/internal/store"
)

func newManager(t *testing.T) (*AccountManager, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	return NewAccountManager(NewAccountRepo(s), NewConfigRepo(s)), s
}

func TestAccountManager_AddSelects(t *testing.T) {
	ctx := context.Background()
	manager, _ := newManager(t)

	acc := &Account{
		Name:         "TestPlayer",
		Provider:     ProviderXboxLive,
		AccessToken:  "token123",
		ExpiresAt:    time.Now().Add(1 * time.Hour),
		Error:        true,
		ErrorMessage: "stale",
	}
	if err := manager.Add(ctx, acc); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if acc.ID == "" {
		t.Fatal("Expected store-assigned ID")
	}

	active, err := manager.Active(ctx)
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if active == nil || active.ID != acc.ID {
		t.Fatalf("Expected active %s, got %+v", acc.ID, active)
	}
	if active.Error || active.ErrorMessage != "" {
		t.Error("error markers should not be persisted on add")
	}
	if active.Name != "TestPlayer" {
		t.Errorf("Expected name TestPlayer, got %s", active.Name)
	}
}

func TestAccountManager_SetActive(t *testing.T) {
	ctx := context.Background()
	manager, _ := newManager(t)

	a := &Account{Name: "A", Provider: ProviderMojangLegacy}
	b := &Account{Name: "B", Provider: ProviderMojangLegacy}
	manager.Add(ctx, a)
	manager.Add(ctx, b)

	if _, err := manager.SetActive(ctx, a.ID); err != nil {
		t.Errorf("SetActive failed: %v", err)
	}
	active, _ := manager.Active(ctx)
	if active.ID != a.ID {
		t.Errorf("Expected active %s, got %s", a.ID, active.ID)
	}

	if _, err := manager.SetActive(ctx, "999"); err == nil {
		t.Error("Expected error for missing account, got nil")
	}
}

func TestAccountManager_Remove(t *testing.T) {
	ctx := context.Background()
	manager, _ := newManager(t)

	a := &Account{Name: "A", Provider: ProviderMojangLegacy}
	b := &Account{Name: "B", Provider: ProviderMojangLegacy}
	manager.Add(ctx, a)
	manager.Add(ctx, b) // b is now active

	next, err := manager.Remove(ctx, b.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if next == nil || next.ID != a.ID {
		t.Fatalf("Expected %s to take over, got %+v", a.ID, next)
	}

	next, err = manager.Remove(ctx, a.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if next != nil {
		t.Errorf("Expected no active account, got %+v", next)
	}
	cfg, _ := manager.Configs.Load(ctx)
	if cfg.AccountSelected != "" {
		t.Errorf("Expected empty selection, got %q", cfg.AccountSelected)
	}
}

func TestAccountManager_RemoveInactiveKeepsSelection(t *testing.T) {
	ctx := context.Background()
	manager, _ := newManager(t)

	a := &Account{Name: "A", Provider: ProviderMojangLegacy}
	b := &Account{Name: "B", Provider: ProviderMojangLegacy}
	manager.Add(ctx, a)
	manager.Add(ctx, b)

	next, err := manager.Remove(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if next == nil || next.ID != b.ID {
		t.Errorf("Expected %s to stay active, got %+v", b.ID, next)
	}
}

func TestAccountRepo_CorruptRecord(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	id, _ := s.Create(ctx, store.CollectionAccounts, map[string]any{"name": 42})

	accounts, err := NewAccountRepo(s).List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 {
		t.Fatalf("Expected 1 account, got %d", len(accounts))
	}
	if accounts[0].ID != id || accounts[0].Provider != "" {
		t.Errorf("corrupt record should surface with ID only, got %+v", accounts[0])
	}
}

func TestAccount_IsExpired(t *testing.T) {
	offline := Account{Provider: ProviderMojangLegacy, ExpiresAt: time.Now().Add(-time.Hour)}
	if offline.IsExpired() {
		t.Error("offline accounts never expire")
	}
	stale := Account{Provider: ProviderXboxLive, ExpiresAt: time.Now().Add(time.Minute)}
	if !stale.IsExpired() {
		t.Error("token inside the 5m buffer should count as expired")
	}
	fresh := Account{Provider: ProviderXboxLive, ExpiresAt: time.Now().Add(time.Hour)}
	if fresh.IsExpired() {
		t.Error("fresh token reported expired")
	}
}

func TestConfigRepo_RepairsOnce(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	// Partial record: only a selection, no nested sections
	s.Update(ctx, store.CollectionClientConfig, store.SingletonID, map[string]any{
		"account_selected": "7",
		"java_config":      map[string]any{"java_path": "/usr/bin/java"},
	})
	before := s.WriteCount()

	repo := NewConfigRepo(s)
	cfg, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AccountSelected != "7" || cfg.Java.Path != "/usr/bin/java" {
		t.Errorf("existing values lost: %+v", cfg)
	}
	if cfg.Java.Memory.Min != 2 || cfg.Java.Memory.Max != 4 {
		t.Errorf("memory defaults = %+v", cfg.Java.Memory)
	}
	if cfg.Game.ScreenSize.Width != 854 || cfg.Launcher.DownloadMulti != 5 || !cfg.Launcher.IntelEnabledMac {
		t.Errorf("defaults not merged: %+v %+v", cfg.Game.ScreenSize, cfg.Launcher)
	}
	if got := s.WriteCount() - before; got != 1 {
		t.Errorf("Expected one repair write, got %d", got)
	}

	repo.Load(ctx)
	if got := s.WriteCount() - before; got != 1 {
		t.Errorf("second Load should not write, total writes %d", got)
	}
}

func TestConfigRepo_UpdateWritesOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	repo := NewConfigRepo(s)
	repo.Load(ctx)
	before := s.WriteCount()

	repo.Update(ctx, func(cfg *ClientConfig) (bool, error) { return false, nil })
	if s.WriteCount() != before {
		t.Error("unchanged update should not write")
	}

	cfg, err := repo.Update(ctx, func(cfg *ClientConfig) (bool, error) {
		cfg.InstanceSelected = "Survival"
		return true, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.InstanceSelected != "Survival" || s.WriteCount() != before+1 {
		t.Errorf("update not persisted: %+v writes=%d", cfg, s.WriteCount()-before)
	}
}
