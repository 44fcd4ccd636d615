package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/quasar/mclaunch/internal/store"
)

// ErrAccountNotFound is returned when switching to an unknown account.
var ErrAccountNotFound = errors.New("account not found")

// AccountManager handles account storage and the selected-account pointer
type AccountManager struct {
	Accounts *AccountRepo
	Configs  *ConfigRepo
}

// NewAccountManager creates a new manager
func NewAccountManager(accounts *AccountRepo, configs *ConfigRepo) *AccountManager {
	return &AccountManager{Accounts: accounts, Configs: configs}
}

// List returns every stored account
func (m *AccountManager) List(ctx context.Context) ([]Account, error) {
	return m.Accounts.List(ctx)
}

// Add stores a freshly logged-in account and makes it the active one
func (m *AccountManager) Add(ctx context.Context, acc *Account) error {
	acc.ClearError()
	if err := m.Accounts.Create(ctx, acc); err != nil {
		return err
	}
	_, err := m.Configs.Update(ctx, func(cfg *ClientConfig) (bool, error) {
		if cfg.AccountSelected == acc.ID {
			return false, nil
		}
		cfg.AccountSelected = acc.ID
		return true, nil
	})
	return err
}

// Active returns the currently active account, or nil when none is selected
// or the selection points at a missing record.
func (m *AccountManager) Active(ctx context.Context) (*Account, error) {
	cfg, err := m.Configs.Load(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := m.Accounts.Get(ctx, cfg.AccountSelected)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return acc, err
}

// SetActive sets the active account
func (m *AccountManager) SetActive(ctx context.Context, id string) (*Account, error) {
	acc, err := m.Accounts.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	_, err = m.Configs.Update(ctx, func(cfg *ClientConfig) (bool, error) {
		if cfg.AccountSelected == id {
			return false, nil
		}
		cfg.AccountSelected = id
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Remove deletes the account. When it was active, the first remaining
// account takes over; the returned account is the new active one (nil when
// no accounts remain).
func (m *AccountManager) Remove(ctx context.Context, id string) (*Account, error) {
	if err := m.Accounts.Delete(ctx, id); err != nil {
		return nil, err
	}
	remaining, err := m.Accounts.List(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := m.Configs.Update(ctx, func(cfg *ClientConfig) (bool, error) {
		if cfg.AccountSelected != id && cfg.AccountSelected != "" {
			return false, nil
		}
		next := ""
		if len(remaining) > 0 {
			next = remaining[0].ID
		}
		if cfg.AccountSelected == next {
			return false, nil
		}
		cfg.AccountSelected = next
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	for i := range remaining {
		if remaining[i].ID == cfg.AccountSelected {
			return &remaining[i], nil
		}
	}
	return nil, nil
}
