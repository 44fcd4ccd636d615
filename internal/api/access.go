package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// alreadyOwnedMessage is the backend's answer when the code was redeemed
// before by the same user.
const alreadyOwnedMessage = "Ya tienes acceso a esta instancia"

var accessCodeRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// NewRetryClient returns the retrying HTTP client used for launcher backend
// calls. Request logs go to logger at debug level; nil disables them.
func NewRetryClient(logger *slog.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 15 * time.Second
	client.Logger = nil
	if logger != nil {
		client.Logger = logger
	}
	return client
}

// RedeemOutcome is the result of an access-code redemption.
type RedeemOutcome int

const (
	RedeemGranted RedeemOutcome = iota
	RedeemAlreadyOwned
	RedeemRefused
)

// RedeemResult carries the outcome and the backend's message.
type RedeemResult struct {
	Outcome RedeemOutcome
	Message string
}

// AccessClient redeems instance access codes against the launcher backend.
type AccessClient struct {
	client *retryablehttp.Client
	url    string
}

func NewAccessClient(url string, logger *slog.Logger) *AccessClient {
	return &AccessClient{client: NewRetryClient(logger), url: url}
}

// ValidAccessCode reports whether code has the accepted shape.
func ValidAccessCode(code string) bool {
	return accessCodeRe.MatchString(code)
}

// Redeem submits code on behalf of user. A refused code is a result, not an
// error; errors are transport or decoding failures.
func (c *AccessClient) Redeem(ctx context.Context, code, user string) (*RedeemResult, error) {
	if !ValidAccessCode(code) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	if c.url == "" {
		return nil, fmt.Errorf("redeem: no access code URL configured")
	}

	body, _ := json.Marshal(map[string]string{"codigo": code, "usuario": user})
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("redeeming code: %w", err)
	}
	defer resp.Body.Close()

	var data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding redeem response (%d): %w", resp.StatusCode, err)
	}

	switch {
	case data.Status == "success":
		return &RedeemResult{Outcome: RedeemGranted, Message: data.Message}, nil
	case data.Status == "error" && data.Message == alreadyOwnedMessage:
		return &RedeemResult{Outcome: RedeemAlreadyOwned, Message: data.Message}, nil
	default:
		return &RedeemResult{Outcome: RedeemRefused, Message: data.Message}, nil
	}
}
