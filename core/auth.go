package core

import (
	"encoding/json"
	"strings"
	"time"
)

// Scope selects which challenge/verify flow a request belongs to
type Scope string

const (
	// ScopeLogin is the wallet sign-in flow that mints a session
	ScopeLogin Scope = "login"

	// ScopeAdmin is the short-lived operator elevation layered on a session
	ScopeAdmin Scope = "admin"
)

// Connector identifies the wallet transport a client used
type Connector string

const (
	ConnectorInjected      Connector = "injected"
	ConnectorWalletConnect Connector = "walletconnect"
	ConnectorKey           Connector = "key"
)

// Challenge represents a signing challenge issued by the upstream API
type Challenge struct {
	Address          string `json:"address"`            // Address the challenge was issued for
	Nonce            string `json:"nonce"`              // Single-use nonce embedded in the message
	MessageToSign    string `json:"message_to_sign"`    // Exact text the wallet must sign
	ExpiresInSeconds int    `json:"expires_in_seconds"` // Validity window from issuance
}

// SessionInfo is the cookie-derived view of the current session
type SessionInfo struct {
	Authenticated bool    `json:"authenticated"`
	Address       *string `json:"address"`
}

// SessionAddress returns the session address or an empty string
func (s SessionInfo) SessionAddress() string {
	if s.Address == nil {
		return ""
	}
	return *s.Address
}

// Grant is the outcome of a successful verify step
type Grant struct {
	Scope       Scope           // Flow that produced the grant
	Address     string          // Address that signed the challenge
	AccessToken string          // Bearer token, set for ScopeLogin only
	Payload     json.RawMessage // Upstream response body
}

// WalletAuthState is the client-side cache of the last wallet connection.
// It is a UX hint only and never authorizes anything.
type WalletAuthState struct {
	Address   *string   `json:"address"`
	Connector Connector `json:"connector,omitempty"`
}

// IssuedChallenge is the issuer-side record of an outstanding challenge
type IssuedChallenge struct {
	Scope     Scope     // Flow the challenge belongs to
	Address   string    // Normalized address of the signer
	Nonce     string    // Random nonce to be signed
	Message   string    // Full message text handed to the wallet
	ExpiresAt time.Time // When the challenge expires
}

// IssuedSession represents a bearer session minted by the issuer
type IssuedSession struct {
	ID        string    // Unique session identifier
	Address   string    // Normalized address of the holder
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the bearer token stops being accepted
}

// SameAddress compares two wallet addresses case-insensitively
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
