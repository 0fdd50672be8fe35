package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/layer-3/agora-gate/core"
	"github.com/layer-3/agora-gate/internal/eth"
)

// KeyProvider is a headless wallet backed by a local secp256k1 key.
// It tracks chains the way a browser wallet does so chain switching behaves the same.
type KeyProvider struct {
	key     *ecdsa.PrivateKey
	address string

	mu      sync.Mutex
	chainID uint64
	known   map[uint64]bool
}

// NewKeyProvider creates a key wallet that starts on chainID
func NewKeyProvider(key *ecdsa.PrivateKey, chainID uint64) *KeyProvider {
	return &KeyProvider{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		chainID: chainID,
		known:   map[uint64]bool{chainID: true},
	}
}

// ParsePrivateKey decodes a hex secp256k1 key with or without 0x
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// Address returns the checksummed wallet address
func (k *KeyProvider) Address() string {
	return k.address
}

// ChainID returns the currently selected chain
func (k *KeyProvider) ChainID() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.chainID
}

// Request serves the subset of EIP-1193 the auth flow uses
func (k *KeyProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	args, err := normalizeParams(params)
	if err != nil {
		return nil, err
	}

	switch method {
	case "eth_requestAccounts", "eth_accounts":
		return json.Marshal([]string{k.address})

	case "eth_chainId":
		return json.Marshal(HexChainID(k.ChainID()))

	case "personal_sign":
		var message, address string
		if len(args) < 2 || json.Unmarshal(args[0], &message) != nil || json.Unmarshal(args[1], &address) != nil {
			return nil, &RPCError{Code: -32602, Message: "personal_sign expects [message, address]"}
		}
		if !core.SameAddress(address, k.address) {
			return nil, &RPCError{Code: 4100, Message: "address is not managed by this wallet"}
		}
		sig, err := eth.SignPersonal(k.key, message)
		if err != nil {
			return nil, err
		}
		return json.Marshal(sig)

	case "wallet_switchEthereumChain":
		chainID, err := chainIDParam(args)
		if err != nil {
			return nil, err
		}
		k.mu.Lock()
		defer k.mu.Unlock()
		if !k.known[chainID] {
			return nil, &RPCError{Code: CodeUnrecognizedChain, Message: fmt.Sprintf("Unrecognized chain ID %q", HexChainID(chainID))}
		}
		k.chainID = chainID
		return json.RawMessage("null"), nil

	case "wallet_addEthereumChain":
		chainID, err := chainIDParam(args)
		if err != nil {
			return nil, err
		}
		k.mu.Lock()
		k.known[chainID] = true
		k.mu.Unlock()
		return json.RawMessage("null"), nil
	}

	return nil, &RPCError{Code: 4200, Message: "unsupported method " + method}
}

// Disconnect is a no-op for a local key
func (k *KeyProvider) Disconnect(ctx context.Context) error {
	return nil
}

// normalizeParams turns Go values into their JSON form so every provider sees
// the same shapes a remote wallet would
func normalizeParams(params []any) ([]json.RawMessage, error) {
	if len(params) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	return out, nil
}

func chainIDParam(args []json.RawMessage) (uint64, error) {
	var p struct {
		ChainID string `json:"chainId"`
	}
	if len(args) == 0 || json.Unmarshal(args[0], &p) != nil || p.ChainID == "" {
		return 0, &RPCError{Code: -32602, Message: "expected {chainId}"}
	}
	id, err := hexutil.DecodeUint64(p.ChainID)
	if err != nil {
		return 0, &RPCError{Code: -32602, Message: "invalid chainId " + p.ChainID}
	}
	return id, nil
}
