// Package eth holds the EIP-191 personal_sign primitives shared by the
// local key wallet and the reference issuer.
package eth

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/layer-3/agora-gate/core"
)

// NormalizeAddress returns the lowercase form used as a storage key
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ValidateAddress checks that address is a 20-byte hex address
func ValidateAddress(address string) error {
	if !common.IsHexAddress(strings.TrimSpace(address)) {
		return core.ErrInvalidAddress
	}
	return nil
}

// TextHash is keccak256("\x19Ethereum Signed Message:\n" + len(message) + message)
func TextHash(message string) []byte {
	return accounts.TextHash([]byte(message))
}

// SignPersonal produces a 65-byte personal_sign signature with V in {27, 28}
func SignPersonal(key *ecdsa.PrivateKey, message string) (string, error) {
	sig, err := crypto.Sign(TextHash(message), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// RecoverPersonal returns the address that produced signature over message
func RecoverPersonal(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes: %w", core.ErrInvalidSignature)
	}

	// Wallets emit V as 27/28, crypto.SigToPub wants 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(TextHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", core.ErrInvalidSignature)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyPersonal checks that address signed message
func VerifyPersonal(address, message, signature string) error {
	recovered, err := RecoverPersonal(message, signature)
	if err != nil {
		return err
	}
	if NormalizeAddress(recovered.Hex()) != NormalizeAddress(address) {
		return core.ErrInvalidSignature
	}
	return nil
}
