package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quasar/mclaunch/internal/core"
)

// AZauthClient talks to a self-hosted AZauth service.
type AZauthClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewAZauthClient(baseURL string) *AZauthClient {
	return &AZauthClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

type azauthResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ID          int    `json:"id"`
	Username    string `json:"username"`
	UUID        string `json:"uuid"`
	AccessToken string `json:"access_token"`
}

// AZauthState is the provider state stored on AZauth accounts.
type AZauthState struct {
	UserID int `json:"user_id"`
}

// Verify checks the account session with the service and returns the
// refreshed account. An error document or a non-200 answer is a rejection.
func (c *AZauthClient) Verify(ctx context.Context, acc core.Account) (core.Account, error) {
	if c.baseURL == "" {
		return core.Account{}, fmt.Errorf("azauth: no service URL configured")
	}
	body, _ := json.Marshal(map[string]string{"access_token": acc.AccessToken})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Account{}, err
	}
	defer resp.Body.Close()

	var result azauthResponse
	if resp.StatusCode != http.StatusOK {
		return core.Account{}, newStatusError("azauth verify", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return core.Account{}, fmt.Errorf("decoding azauth response: %w", err)
	}
	if result.Status == "error" {
		return core.Account{}, &StatusError{Op: "azauth verify", StatusCode: http.StatusUnauthorized, Body: result.Message}
	}

	state, _ := json.Marshal(AZauthState{UserID: result.ID})
	out := acc
	out.Name = result.Username
	out.UUID = result.UUID
	out.Provider = core.ProviderManagedAuth
	out.Online = true
	out.AccessToken = result.AccessToken
	out.State = state
	return out, nil
}
