package api

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/quasar/mclaunch/internal/core"
)

var mojangAuthServerURL = "https://authserver.mojang.com"

// MojangClient handles legacy Yggdrasil accounts and offline identities.
type MojangClient struct {
	httpClient *http.Client
}

// NewMojangClient creates a new Mojang API client
func NewMojangClient() *MojangClient {
	return &MojangClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// MojangState is the provider state stored on Mojang accounts.
type MojangState struct {
	ClientToken string `json:"client_token"`
}

type yggdrasilProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type yggdrasilRefresh struct {
	AccessToken     string            `json:"accessToken"`
	ClientToken     string            `json:"clientToken"`
	SelectedProfile *yggdrasilProfile `json:"selectedProfile,omitempty"`
	RequestUser     bool              `json:"requestUser,omitempty"`
}

// ValidPlayerName reports whether name is usable as an offline identity:
// any non-empty name without whitespace.
func ValidPlayerName(name string) bool {
	return name != "" && !strings.ContainsFunc(name, unicode.IsSpace)
}

// OfflineUUID derives the UUID the game server assigns to an offline player.
func OfflineUUID(name string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = sum[6]&0x0f | 0x30
	sum[8] = sum[8]&0x3f | 0x80
	return uuid.UUID(sum)
}

// Login creates an offline account. It is deterministic, so logging in
// again with the same name yields the same identity.
func (c *MojangClient) Login(name string) (core.Account, error) {
	if !ValidPlayerName(name) {
		return core.Account{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	id := OfflineUUID(name)
	state, _ := json.Marshal(MojangState{ClientToken: uuid.NewString()})
	return core.Account{
		Name:        name,
		UUID:        id.String(),
		Provider:    core.ProviderMojangLegacy,
		Online:      false,
		AccessToken: id.String(),
		State:       state,
	}, nil
}

// Refresh renews an account. Offline accounts are re-derived locally; online
// accounts are refreshed against the auth server.
func (c *MojangClient) Refresh(ctx context.Context, acc core.Account) (core.Account, error) {
	if !acc.Online {
		out, err := c.Login(acc.Name)
		if err == nil && len(acc.State) > 0 {
			out.State = acc.State
		}
		return out, err
	}

	var state MojangState
	if len(acc.State) > 0 {
		if err := json.Unmarshal(acc.State, &state); err != nil {
			return core.Account{}, fmt.Errorf("decoding mojang state: %w", err)
		}
	}

	body, _ := json.Marshal(yggdrasilRefresh{
		AccessToken: acc.AccessToken,
		ClientToken: state.ClientToken,
		RequestUser: true,
	})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, mojangAuthServerURL+"/refresh", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Account{}, fmt.Errorf("mojang refresh: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.Account{}, newStatusError("mojang refresh", resp)
	}

	var result yggdrasilRefresh
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return core.Account{}, fmt.Errorf("decoding mojang refresh: %w", err)
	}

	out := acc
	out.AccessToken = result.AccessToken
	if result.SelectedProfile != nil {
		out.Name = result.SelectedProfile.Name
		out.UUID = result.SelectedProfile.ID
	}
	if result.ClientToken != "" {
		out.State, _ = json.Marshal(MojangState{ClientToken: result.ClientToken})
	}
	out.ExpiresAt = tokenExpiry(result.AccessToken, 0)
	return out, nil
}
