package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/layer-3/agora-gate/core"
)

// Factory opens a provider. It returns core.ErrNoInjectedWallet or
// core.ErrNotConfigured when the transport is unavailable.
type Factory func(ctx context.Context) (Provider, error)

// Session is the connection a caller holds after a successful connect.
// It replaces any notion of a process-wide active provider.
type Session struct {
	Provider  Provider
	Connector core.Connector
	Address   string
}

// Connected reports whether the session still holds a provider
func (s *Session) Connected() bool {
	return s != nil && s.Provider != nil
}

// Adapter connects wallets and drives sign and chain requests
type Adapter struct {
	injected      Factory
	walletConnect Factory
	log           zerolog.Logger
}

// Option customizes an Adapter
type Option func(*Adapter)

// WithInjected sets how the injected provider is reached
func WithInjected(f Factory) Option {
	return func(a *Adapter) { a.injected = f }
}

// WithWalletConnect sets how a remote pairing is opened
func WithWalletConnect(f Factory) Option {
	return func(a *Adapter) { a.walletConnect = f }
}

// WithLogger sets the adapter logger
func WithLogger(log zerolog.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// NewAdapter creates an adapter. Missing factories behave as absent transports.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ConnectInjected connects through the injected provider
func (a *Adapter) ConnectInjected(ctx context.Context) (*Session, error) {
	if a.injected == nil {
		return nil, core.ErrNoInjectedWallet
	}
	p, err := a.injected(ctx)
	if err != nil {
		return nil, err
	}
	return a.ConnectProvider(ctx, p, core.ConnectorInjected)
}

// ConnectWalletConnect opens a remote pairing and requests accounts
func (a *Adapter) ConnectWalletConnect(ctx context.Context) (*Session, error) {
	if a.walletConnect == nil {
		return nil, core.ErrNotConfigured
	}
	p, err := a.walletConnect(ctx)
	if err != nil {
		return nil, err
	}
	if pairer, ok := p.(Pairer); ok {
		if err := pairer.Connect(ctx); err != nil {
			return nil, fmt.Errorf("walletconnect pairing failed: %w", err)
		}
	}
	return a.ConnectProvider(ctx, p, core.ConnectorWalletConnect)
}

// ConnectWallet tries the injected provider first and falls back to WalletConnect
// only when no injected wallet exists
func (a *Adapter) ConnectWallet(ctx context.Context) (*Session, error) {
	sess, err := a.ConnectInjected(ctx)
	if errors.Is(err, core.ErrNoInjectedWallet) {
		a.log.Debug().Msg("no injected wallet, falling back to walletconnect")
		return a.ConnectWalletConnect(ctx)
	}
	return sess, err
}

// ConnectProvider requests accounts from p and wraps it in a session
func (a *Adapter) ConnectProvider(ctx context.Context, p Provider, connector core.Connector) (*Session, error) {
	raw, err := a.request(ctx, p, "eth_requestAccounts")
	if err != nil {
		return nil, err
	}

	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}
	if len(accounts) == 0 || accounts[0] == "" {
		return nil, core.ErrNoAccounts
	}

	return &Session{
		Provider:  p,
		Connector: connector,
		Address:   accounts[0],
	}, nil
}

// EnsureChain switches the wallet to chainID, adding the chain first when the
// wallet does not know it
func (a *Adapter) EnsureChain(ctx context.Context, sess *Session, chainID uint64) error {
	p, release, err := a.provider(ctx, sess)
	if err != nil {
		return err
	}
	defer release()

	switchParams := map[string]string{"chainId": HexChainID(chainID)}

	_, err = a.request(ctx, p, "wallet_switchEthereumChain", switchParams)
	if err == nil {
		return nil
	}

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != CodeUnrecognizedChain {
		return err
	}

	params, ok := ChainPreset(chainID)
	if !ok {
		return fmt.Errorf("%w: chainId=%d", core.ErrUnsupportedChain, chainID)
	}

	a.log.Debug().Uint64("chain_id", chainID).Msg("chain unknown to wallet, adding it")
	if _, err := a.request(ctx, p, "wallet_addEthereumChain", params); err != nil {
		return err
	}
	_, err = a.request(ctx, p, "wallet_switchEthereumChain", switchParams)
	return err
}

// PersonalSign asks the wallet to sign message verbatim. A nil session uses the
// injected provider for this call only.
func (a *Adapter) PersonalSign(ctx context.Context, sess *Session, address, message string) (string, error) {
	p, release, err := a.provider(ctx, sess)
	if err != nil {
		return "", err
	}
	defer release()

	raw, err := a.request(ctx, p, "personal_sign", message, address)
	if err != nil {
		return "", err
	}

	var sig string
	if err := json.Unmarshal(raw, &sig); err != nil {
		return "", fmt.Errorf("failed to decode signature: %w", err)
	}
	return sig, nil
}

// Disconnect asks the provider to disconnect and always clears the session
func (a *Adapter) Disconnect(ctx context.Context, sess *Session) error {
	if sess == nil || sess.Provider == nil {
		return nil
	}

	p := sess.Provider
	sess.Provider = nil
	sess.Connector = ""
	sess.Address = ""

	if err := p.Disconnect(ctx); err != nil {
		a.log.Debug().Err(err).Msg("wallet disconnect failed")
		return err
	}
	return nil
}

// provider resolves the provider for one call. A provider dialed just for the
// call is disconnected by release.
func (a *Adapter) provider(ctx context.Context, sess *Session) (Provider, func(), error) {
	if sess.Connected() {
		return sess.Provider, func() {}, nil
	}
	if a.injected != nil {
		if p, err := a.injected(ctx); err == nil {
			return p, func() {
				if err := p.Disconnect(context.WithoutCancel(ctx)); err != nil {
					a.log.Debug().Err(err).Msg("wallet disconnect failed")
				}
			}, nil
		}
	}
	return nil, nil, core.ErrNoProvider
}

// request retries once after an explicit connect when the provider reports the
// connect-before-request quirk
func (a *Adapter) request(ctx context.Context, p Provider, method string, params ...any) (json.RawMessage, error) {
	out, err := p.Request(ctx, method, params...)
	if !connectBeforeRequest(err) {
		return out, err
	}

	pairer, ok := p.(Pairer)
	if !ok {
		return nil, err
	}
	if cerr := pairer.Connect(ctx); cerr != nil {
		return nil, cerr
	}
	return p.Request(ctx, method, params...)
}
