// Package api contains HTTP clients for the identity providers and the
// launcher backend. Endpoint URLs are package variables so tests can point
// them at httptest servers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/quasar/mclaunch/internal/core"
)

var (
	msaDeviceCodeURL = "https://login.microsoftonline.com/consumers/oauth2/v2.0/devicecode"
	msaTokenURL      = "https://login.microsoftonline.com/consumers/oauth2/v2.0/token"
	xboxUserAuthURL  = "https://user.auth.xboxlive.com/user/authenticate"
	xstsAuthURL      = "https://xsts.auth.xboxlive.com/xsts/authorize"
	mcAuthURL        = "https://api.minecraftservices.com/authentication/login_with_xbox"
	mcProfileURL     = "https://api.minecraftservices.com/minecraft/profile"
)

// AuthClient handles Microsoft/Xbox/Minecraft authentication
type AuthClient struct {
	httpClient *http.Client
	clientID   string
}

func NewAuthClient(clientID string) *AuthClient {
	return &AuthClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		clientID:   clientID,
	}
}

// DeviceCode is a pending device authorization: the code the user types
// at VerificationURI, and when it expires.
type DeviceCode = oauth2.DeviceAuthResponse

type MSATokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type XboxAuthRequest struct {
	Properties   XboxAuthProperties `json:"Properties"`
	RelyingParty string             `json:"RelyingParty"`
	TokenType    string             `json:"TokenType"`
}

type XboxAuthProperties struct {
	AuthMethod string   `json:"AuthMethod,omitempty"`
	SiteName   string   `json:"SiteName,omitempty"`
	RpsTicket  string   `json:"RpsTicket,omitempty"`
	SandboxId  string   `json:"SandboxId,omitempty"`
	UserTokens []string `json:"UserTokens,omitempty"`
}

type XboxAuthResponse struct {
	Token         string `json:"Token"`
	DisplayClaims struct {
		XUI []struct {
			UHS string `json:"uhs"`
		} `json:"xui"`
	} `json:"DisplayClaims"`
}

type MinecraftAuthRequest struct {
	IdentityToken string `json:"identityToken"`
}

type MinecraftAuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type MinecraftProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Skins []struct {
		ID      string `json:"id"`
		State   string `json:"state"`
		URL     string `json:"url"`
		Variant string `json:"variant"`
	} `json:"skins"`
}

// XboxState is the provider state stored on Xbox accounts.
type XboxState struct {
	RefreshToken string `json:"refresh_token"`
}

// RequestDeviceCode starts the device code flow.
func (c *AuthClient) RequestDeviceCode(ctx context.Context) (*DeviceCode, error) {
	dc, err := c.oauthConfig().DeviceAuth(c.oauthContext(ctx))
	if err != nil {
		return nil, oauthError("device code request", err)
	}
	return dc, nil
}

// PollForToken waits until the user has approved dc, the code expires or ctx
// is done.
func (c *AuthClient) PollForToken(ctx context.Context, dc *DeviceCode) (*MSATokenResponse, error) {
	tok, err := c.oauthConfig().DeviceAccessToken(c.oauthContext(ctx), dc)
	if err != nil {
		return nil, oauthError("device token", err)
	}
	return msaToken(tok), nil
}

func (c *AuthClient) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID: c.clientID,
		Scopes:   []string{"XboxLive.signin", "offline_access"},
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: msaDeviceCodeURL,
			TokenURL:      msaTokenURL,
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

func (c *AuthClient) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// oauthError keeps the status and body of endpoint rejections.
func oauthError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		body := string(re.Body)
		if re.ErrorCode != "" {
			body = re.ErrorCode
		}
		return &StatusError{Op: op, StatusCode: re.Response.StatusCode, Body: body}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func msaToken(tok *oauth2.Token) *MSATokenResponse {
	out := &MSATokenResponse{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if !tok.Expiry.IsZero() {
		out.ExpiresIn = int(time.Until(tok.Expiry).Seconds())
	}
	return out
}

// RefreshMSA trades a refresh token for a new MSA token pair. A response
// without a new refresh token keeps the old one.
func (c *AuthClient) RefreshMSA(ctx context.Context, refreshToken string) (*MSATokenResponse, error) {
	src := c.oauthConfig().TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, oauthError("msa refresh", err)
	}
	return msaToken(tok), nil
}

// AuthenticateXbox exchanges MSA Access Token for Xbox Live Token
func (c *AuthClient) AuthenticateXbox(ctx context.Context, msaAccessToken string) (*XboxAuthResponse, error) {
	reqBody := XboxAuthRequest{
		Properties: XboxAuthProperties{
			AuthMethod: "RPS",
			SiteName:   "user.auth.xboxlive.com",
			RpsTicket:  "d=" + msaAccessToken,
		},
		RelyingParty: "http://auth.xboxlive.com",
		TokenType:    "JWT",
	}
	return c.doXboxRequest(ctx, xboxUserAuthURL, reqBody)
}

// AuthenticateXSTS exchanges Xbox Live Token for XSTS Token
func (c *AuthClient) AuthenticateXSTS(ctx context.Context, xboxToken string) (*XboxAuthResponse, error) {
	reqBody := XboxAuthRequest{
		Properties: XboxAuthProperties{
			SandboxId:  "RETAIL",
			UserTokens: []string{xboxToken},
		},
		RelyingParty: "rp://api.minecraftservices.com/",
		TokenType:    "JWT",
	}
	return c.doXboxRequest(ctx, xstsAuthURL, reqBody)
}

func (c *AuthClient) doXboxRequest(ctx context.Context, url string, body XboxAuthRequest) (*XboxAuthResponse, error) {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-xbl-contract-version", "1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError("xbox auth", resp)
	}

	var result XboxAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LoginWithXbox exchanges XSTS Token and UHS for Minecraft Access Token
func (c *AuthClient) LoginWithXbox(ctx context.Context, uhs, xstsToken string) (*MinecraftAuthResponse, error) {
	reqBody := MinecraftAuthRequest{
		IdentityToken: fmt.Sprintf("XBL3.0 x=%s;%s", uhs, xstsToken),
	}
	jsonBody, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, mcAuthURL, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError("minecraft login", resp)
	}

	var result MinecraftAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchProfile gets the Minecraft profile (uuid, name, skins)
func (c *AuthClient) FetchProfile(ctx context.Context, accessToken string) (*MinecraftProfile, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, mcProfileURL, nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError("fetch profile", resp)
	}

	var result MinecraftProfile
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Login runs the Xbox chain for a fresh MSA token and returns the resulting
// account. The MSA refresh token is kept in the account state.
func (c *AuthClient) Login(ctx context.Context, msa *MSATokenResponse) (core.Account, error) {
	xboxResp, err := c.AuthenticateXbox(ctx, msa.AccessToken)
	if err != nil {
		return core.Account{}, fmt.Errorf("xbox auth: %w", err)
	}

	xstsResp, err := c.AuthenticateXSTS(ctx, xboxResp.Token)
	if err != nil {
		return core.Account{}, fmt.Errorf("xsts auth: %w", err)
	}
	if len(xstsResp.DisplayClaims.XUI) == 0 {
		return core.Account{}, fmt.Errorf("xsts auth: response has no user hash")
	}

	uhs := xstsResp.DisplayClaims.XUI[0].UHS
	mcResp, err := c.LoginWithXbox(ctx, uhs, xstsResp.Token)
	if err != nil {
		return core.Account{}, fmt.Errorf("minecraft login: %w", err)
	}

	profile, err := c.FetchProfile(ctx, mcResp.AccessToken)
	if err != nil {
		return core.Account{}, fmt.Errorf("fetch profile: %w", err)
	}

	state, _ := json.Marshal(XboxState{RefreshToken: msa.RefreshToken})
	acc := core.Account{
		Name:        profile.Name,
		UUID:        profile.ID,
		Provider:    core.ProviderXboxLive,
		Online:      true,
		AccessToken: mcResp.AccessToken,
		ExpiresAt:   tokenExpiry(mcResp.AccessToken, mcResp.ExpiresIn),
		State:       state,
	}
	if len(profile.Skins) > 0 {
		acc.Profile = &core.Profile{}
		for _, s := range profile.Skins {
			acc.Profile.Skins = append(acc.Profile.Skins, core.Skin{ID: s.ID, URL: s.URL, Variant: s.Variant})
		}
	}
	return acc, nil
}

// Refresh renews an Xbox account from the refresh token in its state.
func (c *AuthClient) Refresh(ctx context.Context, acc core.Account) (core.Account, error) {
	var state XboxState
	if len(acc.State) > 0 {
		if err := json.Unmarshal(acc.State, &state); err != nil {
			return core.Account{}, fmt.Errorf("%w: decoding xbox state: %v", ErrNoRefreshToken, err)
		}
	}
	if state.RefreshToken == "" {
		return core.Account{}, ErrNoRefreshToken
	}

	msa, err := c.RefreshMSA(ctx, state.RefreshToken)
	if err != nil {
		return core.Account{}, err
	}
	if msa.RefreshToken == "" {
		msa.RefreshToken = state.RefreshToken
	}
	return c.Login(ctx, msa)
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return string(b)
}
