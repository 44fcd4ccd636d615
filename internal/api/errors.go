package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoRefreshToken = errors.New("account has no refresh token")
	ErrInvalidName    = errors.New("invalid player name")
	ErrInvalidCode    = errors.New("invalid access code")
)

// StatusError is returned when a provider answers with an unexpected HTTP
// status or an explicit error document.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed (%d)", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s failed (%d): %s", e.Op, e.StatusCode, e.Body)
}

// Rejected reports whether the provider refused the credentials, as opposed
// to being unreachable or failing on its side.
func (e *StatusError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func newStatusError(op string, resp *http.Response) *StatusError {
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
}
