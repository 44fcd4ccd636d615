package auth

import (
	"errors"
	"fmt"

	"github.com/quasar/mclaunch/internal/core"
)

var (
	ErrUnknownProvider = errors.New("account type not found")
	ErrRejected        = errors.New("credentials rejected")
	ErrUnavailable     = errors.New("provider unavailable")
	ErrMalformedName   = errors.New("malformed account name")
)

// RefreshError is the uniform failure returned by every adapter. Kind is one
// of the sentinels above so callers can use errors.Is.
type RefreshError struct {
	Provider core.ProviderType
	Kind     error
	Detail   string
}

func (e *RefreshError) Error() string {
	p := string(e.Provider)
	if p == "" {
		p = "unknown"
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", p, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", p, e.Kind, e.Detail)
}

func (e *RefreshError) Unwrap() error { return e.Kind }
