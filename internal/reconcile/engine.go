// Package reconcile validates every stored account against its provider at
// startup, evicting the ones that can no longer be used.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quasar/mclaunch/internal/core"
	"github.com/quasar/mclaunch/internal/events"
)

// Refresher refreshes one account. auth.Registry implements it.
type Refresher interface {
	Refresh(ctx context.Context, acc core.Account) (core.Account, error)
}

// Result of a reconciliation pass.
type Result struct {
	SelectedAccountID string // empty when no account survived
	NeedsLogin        bool
	Refreshed         []string
	Evicted           []string
}

// Engine runs reconciliation passes.
type Engine struct {
	accounts  *core.AccountRepo
	configs   *core.ConfigRepo
	refresher Refresher
	bus       *events.Bus
	logger    *slog.Logger
}

// NewEngine creates an engine. bus and logger may be nil.
func NewEngine(accounts *core.AccountRepo, configs *core.ConfigRepo, refresher Refresher, bus *events.Bus, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		accounts:  accounts,
		configs:   configs,
		refresher: refresher,
		bus:       bus,
		logger:    logger,
	}
}

// ReconcileAll refreshes every account in storage order. An account whose
// refresh fails for any reason is deleted, and the selection is cleared if
// it pointed there. Afterwards the selection falls back to the first
// remaining account. Provider failures never abort the pass; only record
// store errors and context cancellation do.
func (e *Engine) ReconcileAll(ctx context.Context) (Result, error) {
	var res Result

	initial, err := e.configs.Load(ctx)
	if err != nil {
		return res, err
	}
	accounts, err := e.accounts.List(ctx)
	if err != nil {
		return res, err
	}
	e.logger.Info("reconciling accounts", "accounts", len(accounts))

	for _, acc := range accounts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		evicted, err := e.reconcileOne(ctx, acc)
		if err != nil {
			return res, err
		}
		if evicted {
			res.Evicted = append(res.Evicted, acc.ID)
		} else {
			res.Refreshed = append(res.Refreshed, acc.ID)
		}
	}

	remaining, err := e.accounts.List(ctx)
	if err != nil {
		return res, err
	}
	cfg, err := e.configs.Update(ctx, func(cfg *core.ClientConfig) (bool, error) {
		next := electAccount(remaining, cfg.AccountSelected)
		if next == cfg.AccountSelected {
			return false, nil
		}
		cfg.AccountSelected = next
		return true, nil
	})
	if err != nil {
		return res, fmt.Errorf("electing account: %w", err)
	}

	res.SelectedAccountID = cfg.AccountSelected
	res.NeedsLogin = len(remaining) == 0
	if cfg.AccountSelected != initial.AccountSelected {
		e.bus.Publish(events.Event{Kind: events.AccountSelectionChanged, AccountID: cfg.AccountSelected})
	}
	e.logger.Info("reconciliation done",
		"account_id", res.SelectedAccountID,
		"refreshed", len(res.Refreshed),
		"evicted", len(res.Evicted))
	return res, nil
}

// reconcileOne refreshes acc and persists the outcome. It reports whether
// the account was evicted.
func (e *Engine) reconcileOne(ctx context.Context, acc core.Account) (bool, error) {
	acc.ClearError()
	log := e.logger.With("account_id", acc.ID, "provider", acc.Provider)
	e.bus.Notify(events.LevelInfo, "Refreshing %s", displayName(acc))

	refreshed, err := e.refresher.Refresh(ctx, acc)
	if err != nil {
		log.Warn("evicting account", "name", acc.Name, "error", err)
		if err := e.evict(ctx, acc.ID); err != nil {
			return false, err
		}
		e.bus.Notify(events.LevelError, "Could not refresh %s, please log in again", displayName(acc))
		return true, nil
	}

	refreshed.ID = acc.ID
	refreshed.ClearError()
	if err := e.accounts.Update(ctx, &refreshed); err != nil {
		return false, err
	}
	log.Debug("account refreshed", "name", refreshed.Name)
	e.bus.Notify(events.LevelSuccess, "Account %s refreshed", refreshed.Name)
	return false, nil
}

func (e *Engine) evict(ctx context.Context, id string) error {
	if err := e.accounts.Delete(ctx, id); err != nil {
		return err
	}
	_, err := e.configs.Update(ctx, func(cfg *core.ClientConfig) (bool, error) {
		if cfg.AccountSelected != id {
			return false, nil
		}
		cfg.AccountSelected = ""
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("clearing selection of %s: %w", id, err)
	}
	return nil
}

// electAccount keeps current when it names a remaining account and otherwise
// picks the first one, or none.
func electAccount(remaining []core.Account, current string) string {
	for _, acc := range remaining {
		if acc.ID == current {
			return current
		}
	}
	if len(remaining) == 0 {
		return ""
	}
	return remaining[0].ID
}

func displayName(acc core.Account) string {
	if acc.Name == "" {
		return "account " + acc.ID
	}
	return acc.Name
}
