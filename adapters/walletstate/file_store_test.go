package walletstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/agora-gate/core"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "wallet.json"))
	require.NoError(t, err)
	return s
}

func TestLoadMissingFile(t *testing.T) {
	state := newStore(t).Load()
	assert.Nil(t, state.Address)
	assert.Equal(t, core.ConnectorInjected, state.Connector)
}

func TestSaveAndLoad(t *testing.T) {
	s := newStore(t)
	addr := "0xAbC"

	require.NoError(t, s.Save(core.WalletAuthState{Address: &addr, Connector: core.ConnectorWalletConnect}))

	state := s.Load()
	require.NotNil(t, state.Address)
	assert.Equal(t, "0xAbC", *state.Address)
	assert.Equal(t, core.ConnectorWalletConnect, state.Connector)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadCorruptFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))

	state := s.Load()
	assert.Nil(t, state.Address)
	assert.Equal(t, core.ConnectorInjected, state.Connector)
}

func TestLoadDefaultsConnector(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"address":"0xabc"}`), 0o600))

	state := s.Load()
	require.NotNil(t, state.Address)
	assert.Equal(t, "0xabc", *state.Address)
	assert.Equal(t, core.ConnectorInjected, state.Connector)
}

func TestClear(t *testing.T) {
	s := newStore(t)
	addr := "0xabc"
	require.NoError(t, s.Save(core.WalletAuthState{Address: &addr, Connector: core.ConnectorInjected}))

	require.NoError(t, s.Clear())
	assert.Nil(t, s.Load().Address)
	assert.NoError(t, s.Clear())
}
