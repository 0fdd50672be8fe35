// Package wallet presents one capability surface over the wallet transports:
// an injected JSON-RPC provider, a WalletConnect-style remote pairing, and a
// local private key for headless use.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CodeUnrecognizedChain is the EIP-1193/EIP-3085 error for a chain the wallet does not know
const CodeUnrecognizedChain = 4902

// Provider is an EIP-1193 style request surface
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	Disconnect(ctx context.Context) error
}

// Pairer is implemented by providers that need an explicit connect step
type Pairer interface {
	Connect(ctx context.Context) error
}

// RPCError is a JSON-RPC error returned by a wallet
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("wallet rpc error %d: %s", e.Code, e.Message)
}

// connectBeforeRequest matches the WalletConnect quirk where a request races the pairing
func connectBeforeRequest(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "please call connect() before request")
}
