package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/quasar/mclaunch/internal/api"
	"github.com/quasar/mclaunch/internal/core"
)

type fakeAdapter struct {
	provider core.ProviderType
	calls    int
	result   func(core.Account) (core.Account, error)
}

func (f *fakeAdapter) Provider() core.ProviderType { return f.provider }

func (f *fakeAdapter) Refresh(_ context.Context, acc core.Account) (core.Account, error) {
	f.calls++
	return f.result(acc)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	xbox := &fakeAdapter{provider: core.ProviderXboxLive}
	r := NewRegistry(nil, xbox)

	_, err := r.Refresh(context.Background(), core.Account{ID: "1", Provider: "Steam"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
	if xbox.calls != 0 {
		t.Errorf("adapter called %d times for unknown provider", xbox.calls)
	}
}

func TestRegistry_PreservesID(t *testing.T) {
	a := &fakeAdapter{
		provider: core.ProviderMojangLegacy,
		result: func(acc core.Account) (core.Account, error) {
			return core.Account{ID: "other", Name: "Steve", Error: true, ErrorMessage: "x"}, nil
		},
	}
	r := NewRegistry(nil, a)

	got, err := r.Refresh(context.Background(), core.Account{ID: "4", Provider: core.ProviderMojangLegacy})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "4" || got.Provider != core.ProviderMojangLegacy {
		t.Errorf("identity not preserved: %+v", got)
	}
	if got.Error || got.ErrorMessage != "" {
		t.Errorf("error markers leaked: %+v", got)
	}
}

func TestRegistry_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rejected status", &api.StatusError{Op: "x", StatusCode: 401}, ErrRejected},
		{"server error", &api.StatusError{Op: "x", StatusCode: 503}, ErrUnavailable},
		{"network", fmt.Errorf("dial tcp: connection refused"), ErrUnavailable},
		{"bad name", fmt.Errorf("%w: %q", api.ErrInvalidName, "a b"), ErrMalformedName},
		{"no refresh token", api.ErrNoRefreshToken, ErrRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAdapter{
				provider: core.ProviderManagedAuth,
				result: func(core.Account) (core.Account, error) {
					return core.Account{}, tt.err
				},
			}
			_, err := NewRegistry(nil, a).Refresh(context.Background(), core.Account{Provider: core.ProviderManagedAuth})

			var re *RefreshError
			if !errors.As(err, &re) {
				t.Fatalf("Expected RefreshError, got %T %v", err, err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Kind = %v, want %v", re.Kind, tt.want)
			}
			if re.Provider != core.ProviderManagedAuth {
				t.Errorf("Provider = %s", re.Provider)
			}
		})
	}
}

func TestMojangAdapter_Offline(t *testing.T) {
	r := NewRegistry(nil, MojangAdapter{Client: api.NewMojangClient()})

	got, err := r.Refresh(context.Background(), core.Account{ID: "1", Name: "Steve", Provider: core.ProviderMojangLegacy})
	if err != nil {
		t.Fatalf("offline refresh failed: %v", err)
	}
	if got.UUID != api.OfflineUUID("Steve").String() {
		t.Errorf("UUID = %s", got.UUID)
	}

	_, err = r.Refresh(context.Background(), core.Account{ID: "2", Name: "bad name", Provider: core.ProviderMojangLegacy})
	if !errors.Is(err, ErrMalformedName) {
		t.Errorf("Expected ErrMalformedName, got %v", err)
	}
}
