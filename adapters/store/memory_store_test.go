package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/agora-gate/core"
)

func newTestStore(now func() time.Time) *MemoryStore {
	s := NewMemoryStore().(*MemoryStore)
	s.now = now
	return s
}

func TestTakeChallengeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.PutChallenge(ctx, &core.IssuedChallenge{
		Scope:   core.ScopeLogin,
		Address: "0xabc",
		Nonce:   "n1",
	}, time.Minute)
	require.NoError(t, err)

	got, err := s.TakeChallenge(ctx, core.ScopeLogin, "0xABC")
	require.NoError(t, err)
	assert.Equal(t, "n1", got.Nonce)

	_, err = s.TakeChallenge(ctx, core.ScopeLogin, "0xabc")
	assert.ErrorIs(t, err, core.ErrInvalidChallenge)
}

func TestScopesAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.PutChallenge(ctx, &core.IssuedChallenge{Scope: core.ScopeLogin, Address: "0xabc", Nonce: "login"}, time.Minute))
	require.NoError(t, s.PutChallenge(ctx, &core.IssuedChallenge{Scope: core.ScopeAdmin, Address: "0xabc", Nonce: "admin"}, time.Minute))

	got, err := s.TakeChallenge(ctx, core.ScopeAdmin, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Nonce)

	got, err = s.TakeChallenge(ctx, core.ScopeLogin, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "login", got.Nonce)
}

func TestNewChallengeReplacesOld(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.PutChallenge(ctx, &core.IssuedChallenge{Scope: core.ScopeLogin, Address: "0xabc", Nonce: "old"}, time.Minute))
	require.NoError(t, s.PutChallenge(ctx, &core.IssuedChallenge{Scope: core.ScopeLogin, Address: "0xabc", Nonce: "new"}, time.Minute))

	got, err := s.TakeChallenge(ctx, core.ScopeLogin, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Nonce)
}

func TestExpiredChallengeIsMissing(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	s := newTestStore(func() time.Time { return now })

	require.NoError(t, s.PutChallenge(ctx, &core.IssuedChallenge{Scope: core.ScopeLogin, Address: "0xabc"}, 5*time.Minute))

	now = now.Add(5 * time.Minute)
	_, err := s.TakeChallenge(ctx, core.ScopeLogin, "0xabc")
	assert.ErrorIs(t, err, core.ErrInvalidChallenge)
}

func TestPutSweepsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	s := newTestStore(func() time.Time { return now })

	require.NoError(t, s.PutChallenge(ctx, &core.IssuedChallenge{Scope: core.ScopeLogin, Address: "0x1"}, time.Second))
	now = now.Add(time.Minute)
	require.NoError(t, s.PutChallenge(ctx, &core.IssuedChallenge{Scope: core.ScopeLogin, Address: "0x2"}, time.Second))

	assert.Len(t, s.challenges, 1)
}
