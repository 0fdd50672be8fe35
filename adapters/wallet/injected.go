package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/layer-3/agora-gate/core"
)

// InjectedProvider forwards EIP-1193 requests to a wallet's JSON-RPC endpoint
type InjectedProvider struct {
	client *rpc.Client
}

// InjectedFactory dials rpcURL on demand. An empty URL means no injected wallet.
func InjectedFactory(rpcURL string) Factory {
	return func(ctx context.Context) (Provider, error) {
		if rpcURL == "" {
			return nil, core.ErrNoInjectedWallet
		}
		client, err := rpc.DialContext(ctx, rpcURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrNoInjectedWallet, err)
		}
		return &InjectedProvider{client: client}, nil
	}
}

// Request performs one JSON-RPC call
func (p *InjectedProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := p.client.CallContext(ctx, &out, method, params...); err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return nil, &RPCError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
		}
		return nil, err
	}
	if out == nil {
		out = json.RawMessage("null")
	}
	return out, nil
}

// Disconnect closes the RPC client
func (p *InjectedProvider) Disconnect(ctx context.Context) error {
	p.client.Close()
	return nil
}
