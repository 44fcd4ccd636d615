package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/quasar/mclaunch/internal/store"
)

// AccountRepo reads and writes accounts in the record store.
type AccountRepo struct {
	store store.Store
}

// NewAccountRepo wraps s.
func NewAccountRepo(s store.Store) *AccountRepo {
	return &AccountRepo{store: s}
}

// List returns all accounts in storage order. A record that cannot be
// decoded comes back with only its ID and an empty Provider, so the
// reconciliation pass evicts it like any other unknown account.
func (r *AccountRepo) List(ctx context.Context) ([]Account, error) {
	recs, err := r.store.ReadAll(ctx, store.CollectionAccounts)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	accounts := make([]Account, 0, len(recs))
	for _, rec := range recs {
		var acc Account
		if err := rec.Decode(&acc); err != nil {
			acc = Account{ErrorMessage: fmt.Sprintf("corrupt record: %v", err)}
		}
		acc.ID = rec.ID
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// Get returns the account with id, or store.ErrNotFound.
func (r *AccountRepo) Get(ctx context.Context, id string) (*Account, error) {
	if id == "" {
		return nil, store.ErrNotFound
	}
	var acc Account
	if err := r.store.Read(ctx, store.CollectionAccounts, id, &acc); err != nil {
		return nil, err
	}
	acc.ID = id
	return &acc, nil
}

// Create stores a new account and sets its ID.
func (r *AccountRepo) Create(ctx context.Context, acc *Account) error {
	id, err := r.store.Create(ctx, store.CollectionAccounts, acc)
	if err != nil {
		return fmt.Errorf("creating account %s: %w", acc.Name, err)
	}
	acc.ID = id
	return nil
}

// Update replaces the stored account with the same ID.
func (r *AccountRepo) Update(ctx context.Context, acc *Account) error {
	if err := r.store.Update(ctx, store.CollectionAccounts, acc.ID, acc); err != nil {
		return fmt.Errorf("updating account %s: %w", acc.ID, err)
	}
	return nil
}

// Delete removes the account.
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, store.CollectionAccounts, id); err != nil {
		return fmt.Errorf("deleting account %s: %w", id, err)
	}
	return nil
}

// ConfigRepo owns the ClientConfig singleton. Every mutation goes through
// Update, which re-reads the record and persists under one lock so the
// reconciliation pass, the selector and the watcher never interleave.
type ConfigRepo struct {
	store store.Store
	mu    sync.Mutex
}

// NewConfigRepo wraps s.
func NewConfigRepo(s store.Store) *ConfigRepo {
	return &ConfigRepo{store: s}
}

// Load returns the current config. A missing record or missing sections are
// filled with defaults and written back once.
func (r *ConfigRepo) Load(ctx context.Context) (*ClientConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *ConfigRepo) load(ctx context.Context) (*ClientConfig, error) {
	cfg := &ClientConfig{}
	err := r.store.Read(ctx, store.CollectionClientConfig, store.SingletonID, cfg)
	missing := errors.Is(err, store.ErrNotFound)
	if err != nil && !missing {
		return nil, fmt.Errorf("reading client config: %w", err)
	}

	if repaired := cfg.Normalize(); repaired || missing {
		if err := r.save(ctx, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (r *ConfigRepo) save(ctx context.Context, cfg *ClientConfig) error {
	if err := r.store.Update(ctx, store.CollectionClientConfig, store.SingletonID, cfg); err != nil {
		return fmt.Errorf("writing client config: %w", err)
	}
	return nil
}

// Update runs fn on a fresh copy of the config and persists it when fn
// reports a change. The returned config is the one in effect afterwards.
func (r *ConfigRepo) Update(ctx context.Context, fn func(*ClientConfig) (bool, error)) (*ClientConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	changed, err := fn(next)
	if err != nil {
		return current, err
	}
	if !changed {
		return current, nil
	}
	if err := r.save(ctx, next); err != nil {
		return current, err
	}
	return next, nil
}
