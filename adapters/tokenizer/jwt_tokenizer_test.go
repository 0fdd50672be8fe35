package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/agora-gate/core"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func TestSessionTokenRoundTrip(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))
	now := time.Now().Truncate(time.Second)

	token, err := tk.SessionToToken(&core.IssuedSession{
		ID:        "sid-1",
		Address:   "0xabc",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	session, err := tk.TokenToSession(token)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", session.ID)
	assert.Equal(t, "0xabc", session.Address)
	assert.True(t, session.ExpiresAt.Equal(now.Add(time.Hour)))
}

func TestExpiredToken(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))
	past := time.Now().Add(-2 * time.Hour)

	token, err := tk.SessionToToken(&core.IssuedSession{
		ID:        "sid",
		Address:   "0xabc",
		IssuedAt:  past,
		ExpiresAt: past.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = tk.TokenToSession(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestTokenFromOtherKeyIsRejected(t *testing.T) {
	token, err := NewJWTTokenizer(newKey(t)).SessionToToken(&core.IssuedSession{
		ID:        "sid",
		Address:   "0xabc",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = NewJWTTokenizer(newKey(t)).TokenToSession(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	_, err = NewJWTTokenizer(newKey(t)).TokenToSession("garbage")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestLoadSigningKey(t *testing.T) {
	generated, err := LoadSigningKey("")
	require.NoError(t, err)
	assert.NotNil(t, generated.D)

	hexKey := "0x" + "01" + "00000000000000000000000000000000000000000000000000000000000000"[:62]
	key, err := LoadSigningKey(hexKey)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Curve.IsOnCurve(key.PublicKey.X, key.PublicKey.Y))

	same, err := LoadSigningKey(hexKey[2:])
	require.NoError(t, err)
	assert.Equal(t, 0, key.D.Cmp(same.D))

	_, err = LoadSigningKey("zz")
	assert.Error(t, err)

	_, err = LoadSigningKey("0x00")
	assert.Error(t, err)
}
