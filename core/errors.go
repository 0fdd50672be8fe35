package core

import (
	"errors"
	"fmt"
)

// Wallet capability errors
var (
	ErrNoInjectedWallet = errors.New("no injected wallet found")
	ErrNotConfigured    = errors.New("walletconnect not configured")
	ErrNoProvider       = errors.New("no wallet provider available")
	ErrNoAccounts       = errors.New("no accounts returned from wallet")
	ErrUnsupportedChain = errors.New("unsupported chain")
	ErrNotConnected     = errors.New("wallet not connected")
)

// Protocol errors
var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotSignedIn        = errors.New("not signed in")
	ErrWalletMismatch     = errors.New("connected wallet does not match signed-in session address")
	ErrMissingAccessToken = errors.New("missing access_token")
	ErrBusy               = errors.New("another auth attempt is in progress")
	ErrAdminRequired      = errors.New("admin signature required")
	ErrJobIDRequired      = errors.New("job_id is required")
)

// Request guard errors
var (
	ErrBadOrigin   = errors.New("bad origin")
	ErrMissingHost = errors.New("missing host")
)

// Issuer errors
var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidChallenge = errors.New("no valid challenge (expired or missing)")
	ErrInvalidAddress   = errors.New("invalid ethereum address")
	ErrNotOperator      = errors.New("address is not an operator")
)

// StatusError is a non-2xx answer from an HTTP JSON API. The body is kept
// verbatim so upstream detail text reaches the caller.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed: %d %s", e.Method, e.Path, e.Status, e.Body)
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
