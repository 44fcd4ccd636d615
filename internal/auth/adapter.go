// Package auth adapts the provider clients to one refresh contract and
// dispatches accounts to the adapter for their provider.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/quasar/mclaunch/internal/api"
	"github.com/quasar/mclaunch/internal/core"
)

// Adapter refreshes or verifies accounts of one provider. On success the
// returned account replaces the stored one; every failure is a *RefreshError.
type Adapter interface {
	Provider() core.ProviderType
	Refresh(ctx context.Context, acc core.Account) (core.Account, error)
}

// Registry holds one adapter per provider.
type Registry struct {
	adapters map[core.ProviderType]Adapter
	logger   *slog.Logger
}

// NewRegistry builds a registry from adapters. A later adapter for the same
// provider replaces an earlier one.
func NewRegistry(logger *slog.Logger, adapters ...Adapter) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Registry{adapters: make(map[core.ProviderType]Adapter, len(adapters)), logger: logger}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

// Refresh dispatches acc to its provider's adapter. Unknown providers fail
// with ErrUnknownProvider without touching any adapter.
func (r *Registry) Refresh(ctx context.Context, acc core.Account) (core.Account, error) {
	a, ok := r.adapters[acc.Provider]
	if !ok {
		return core.Account{}, &RefreshError{Provider: acc.Provider, Kind: ErrUnknownProvider}
	}

	out, err := a.Refresh(ctx, acc)
	if err != nil {
		var re *RefreshError
		if !errors.As(err, &re) {
			re = classify(acc.Provider, err)
		}
		r.logger.Debug("refresh failed", "provider", acc.Provider, "account_id", acc.ID, "error", re)
		return core.Account{}, re
	}
	out.ID = acc.ID
	out.Provider = acc.Provider
	out.ClearError()
	return out, nil
}

// classify maps a provider client error onto a RefreshError kind.
func classify(p core.ProviderType, err error) *RefreshError {
	var se *api.StatusError
	switch {
	case errors.Is(err, api.ErrInvalidName):
		return &RefreshError{Provider: p, Kind: ErrMalformedName, Detail: err.Error()}
	case errors.Is(err, api.ErrNoRefreshToken):
		return &RefreshError{Provider: p, Kind: ErrRejected, Detail: err.Error()}
	case errors.As(err, &se) && se.Rejected():
		return &RefreshError{Provider: p, Kind: ErrRejected, Detail: se.Body}
	default:
		return &RefreshError{Provider: p, Kind: ErrUnavailable, Detail: err.Error()}
	}
}

// XboxAdapter refreshes Microsoft accounts.
type XboxAdapter struct {
	Client *api.AuthClient
}

func (XboxAdapter) Provider() core.ProviderType { return core.ProviderXboxLive }

func (a XboxAdapter) Refresh(ctx context.Context, acc core.Account) (core.Account, error) {
	out, err := a.Client.Refresh(ctx, acc)
	if err != nil {
		return core.Account{}, classify(core.ProviderXboxLive, err)
	}
	return out, nil
}

// AZauthAdapter verifies sessions against an AZauth service.
type AZauthAdapter struct {
	Client *api.AZauthClient
}

func (AZauthAdapter) Provider() core.ProviderType { return core.ProviderManagedAuth }

func (a AZauthAdapter) Refresh(ctx context.Context, acc core.Account) (core.Account, error) {
	out, err := a.Client.Verify(ctx, acc)
	if err != nil {
		return core.Account{}, classify(core.ProviderManagedAuth, err)
	}
	return out, nil
}

// MojangAdapter handles legacy online accounts and offline identities.
type MojangAdapter struct {
	Client *api.MojangClient
}

func (MojangAdapter) Provider() core.ProviderType { return core.ProviderMojangLegacy }

func (a MojangAdapter) Refresh(ctx context.Context, acc core.Account) (core.Account, error) {
	out, err := a.Client.Refresh(ctx, acc)
	if err != nil {
		return core.Account{}, classify(core.ProviderMojangLegacy, err)
	}
	return out, nil
}

// Defaults returns the adapters for the three supported providers.
func Defaults(msaClientID, azauthURL string) []Adapter {
	return []Adapter{
		XboxAdapter{Client: api.NewAuthClient(msaClientID)},
		AZauthAdapter{Client: api.NewAZauthClient(azauthURL)},
		MojangAdapter{Client: api.NewMojangClient()},
	}
}
