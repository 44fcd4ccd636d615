package core

import (
	"encoding/json"
	"time"
)

// ProviderType identifies the identity backend an account belongs to.
type ProviderType string

const (
	ProviderXboxLive     ProviderType = "Xbox"   // Microsoft / Xbox Live
	ProviderManagedAuth  ProviderType = "AZauth" // self-hosted auth service
	ProviderMojangLegacy ProviderType = "Mojang" // legacy Yggdrasil or offline
)

// Account represents a Minecraft account
type Account struct {
	ID          string       `json:"-"` // assigned by the record store
	Name        string       `json:"name"`
	UUID        string       `json:"uuid"`
	Provider    ProviderType `json:"provider"`
	Online      bool         `json:"online"` // Mojang only; false means offline identity
	AccessToken string       `json:"accessToken,omitempty"`
	ExpiresAt   time.Time    `json:"expiresAt,omitzero"`

	// State is round-tripped to the provider adapter untouched.
	State   json.RawMessage `json:"state,omitempty"`
	Profile *Profile        `json:"profile,omitempty"`

	// Transient failure markers. Never survive a reconciliation pass.
	Error        bool   `json:"error,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Profile holds optional avatar data.
type Profile struct {
	Skins []Skin `json:"skins,omitempty"`
}

// Skin is a single skin texture.
type Skin struct {
	ID      string `json:"id,omitempty"`
	URL     string `json:"url,omitempty"`
	Variant string `json:"variant,omitempty"`
	Base64  string `json:"base64,omitempty"`
}

// ClearError drops the transient failure markers.
func (a *Account) ClearError() bool {
	had := a.Error || a.ErrorMessage != ""
	a.Error = false
	a.ErrorMessage = ""
	return had
}

// IsExpired checks if the token is expired (with 5m buffer)
func (a *Account) IsExpired() bool {
	if a.Provider == ProviderMojangLegacy && !a.Online {
		return false
	}
	if a.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(5 * time.Minute).After(a.ExpiresAt)
}

// UserType is the value the game expects for --userType.
func (a *Account) UserType() string {
	switch a.Provider {
	case ProviderXboxLive:
		return "msa"
	case ProviderMojangLegacy:
		if !a.Online {
			return "legacy"
		}
		return "mojang"
	default:
		return "mojang"
	}
}
