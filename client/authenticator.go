package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/layer-3/agora-gate/adapters/wallet"
	"github.com/layer-3/agora-gate/core"
)

// Wallet is the part of the wallet adapter the handshake needs
type Wallet interface {
	EnsureChain(ctx context.Context, sess *wallet.Session, chainID uint64) error
	PersonalSign(ctx context.Context, sess *wallet.Session, address, message string) (string, error)
	Disconnect(ctx context.Context, sess *wallet.Session) error
}

// StateStore persists the last wallet connection
type StateStore interface {
	Save(state core.WalletAuthState) error
	Clear() error
}

// Authenticator runs the challenge, sign, verify handshake for login and for
// admin elevation. One attempt runs at a time; a second concurrent attempt
// fails with core.ErrBusy instead of queueing.
type Authenticator struct {
	bff    *Client
	wallet Wallet
	state  StateStore
	log    zerolog.Logger

	busy atomic.Bool
}

// NewAuthenticator creates an authenticator. state may be nil.
func NewAuthenticator(bff *Client, w Wallet, state StateStore, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		bff:    bff,
		wallet: w,
		state:  state,
		log:    log,
	}
}

func (a *Authenticator) acquire() error {
	if !a.busy.CompareAndSwap(false, true) {
		return core.ErrBusy
	}
	return nil
}

func (a *Authenticator) release() {
	a.busy.Store(false)
}

// ConnectAndSignIn connects a wallet, moves it to chainID when non-zero,
// caches the connection and signs in
func (a *Authenticator) ConnectAndSignIn(
	ctx context.Context,
	connect func(ctx context.Context) (*wallet.Session, error),
	chainID uint64,
) (*wallet.Session, core.SessionInfo, error) {
	sess, err := connect(ctx)
	if err != nil {
		return nil, core.SessionInfo{}, err
	}

	if chainID != 0 {
		if err := a.wallet.EnsureChain(ctx, sess, chainID); err != nil {
			return sess, core.SessionInfo{}, fmt.Errorf("failed to switch chain: %w", err)
		}
	}

	if a.state != nil {
		addr := sess.Address
		if err := a.state.Save(core.WalletAuthState{Address: &addr, Connector: sess.Connector}); err != nil {
			a.log.Warn().Err(err).Msg("failed to save wallet state")
		}
	}

	info, err := a.SignIn(ctx, sess)
	return sess, info, err
}

// SignIn proves ownership of the session's address and establishes a BFF session.
// Nothing changes on failure; the caller restarts from a fresh challenge.
func (a *Authenticator) SignIn(ctx context.Context, sess *wallet.Session) (core.SessionInfo, error) {
	if err := a.acquire(); err != nil {
		return core.SessionInfo{}, err
	}
	defer a.release()

	if !sess.Connected() || sess.Address == "" {
		return core.SessionInfo{}, core.ErrNotConnected
	}
	address := sess.Address

	ch, err := a.bff.Challenge(ctx, address)
	if err != nil {
		return core.SessionInfo{}, err
	}

	sig, err := a.wallet.PersonalSign(ctx, sess, address, ch.MessageToSign)
	if err != nil {
		return core.SessionInfo{}, err
	}

	if err := a.bff.Verify(ctx, address, sig); err != nil {
		return core.SessionInfo{}, err
	}

	a.log.Info().Str("address", address).Msg("signed in")
	return core.SessionInfo{Authenticated: true, Address: &address}, nil
}

// SignOut clears the BFF session, disconnects the wallet and forgets the cached connection
func (a *Authenticator) SignOut(ctx context.Context, sess *wallet.Session) error {
	if err := a.bff.Logout(ctx); err != nil {
		return err
	}

	if err := a.wallet.Disconnect(ctx, sess); err != nil {
		a.log.Debug().Err(err).Msg("wallet disconnect failed")
	}
	if a.state != nil {
		if err := a.state.Clear(); err != nil {
			a.log.Warn().Err(err).Msg("failed to clear wallet state")
		}
	}
	return nil
}

// EnterAdmin runs the elevation handshake. info is the current session as
// reported by Me; preconditions are checked before any request is made.
func (a *Authenticator) EnterAdmin(ctx context.Context, sess *wallet.Session, info core.SessionInfo) error {
	if err := a.acquire(); err != nil {
		return err
	}
	defer a.release()

	if !info.Authenticated || info.SessionAddress() == "" {
		return core.ErrNotSignedIn
	}
	if !sess.Connected() {
		return core.ErrNotConnected
	}
	if !core.SameAddress(sess.Address, info.SessionAddress()) {
		return core.ErrWalletMismatch
	}

	ch, err := a.bff.AdminChallenge(ctx)
	if err != nil {
		return err
	}

	sig, err := a.wallet.PersonalSign(ctx, sess, sess.Address, ch.MessageToSign)
	if err != nil {
		return err
	}

	if err := a.bff.AdminVerify(ctx, sig); err != nil {
		return err
	}

	a.log.Info().Str("address", sess.Address).Msg("admin access granted")
	return nil
}

// AdminGet reads an operator route, re-running the elevation handshake once
// when the BFF answers 401
func (a *Authenticator) AdminGet(ctx context.Context, sess *wallet.Session, path string) (json.RawMessage, error) {
	data, err := a.bff.AdminGet(ctx, path)
	if StatusOf(err) != http.StatusUnauthorized {
		return data, err
	}

	a.log.Debug().Str("path", path).Msg("admin access expired, re-elevating")

	info, err := a.bff.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.EnterAdmin(ctx, sess, info); err != nil {
		return nil, err
	}

	return a.bff.AdminGet(ctx, path)
}
