// Package walletstate caches the last wallet connection between CLI runs.
// The cache is a UX hint and never authorizes anything.
package walletstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/layer-3/agora-gate/core"
)

// StorageKey names the cached entry, kept stable across releases
const StorageKey = "agora_wallet_address_v1"

// FileStore keeps WalletAuthState in a JSON file
type FileStore struct {
	path string
}

// NewFileStore stores state at path. An empty path uses the user config dir.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config dir: %w", err)
		}
		path = filepath.Join(dir, "agora-gate", StorageKey+".json")
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the cached state. A missing or corrupt file yields an empty
// state with the injected connector.
func (s *FileStore) Load() core.WalletAuthState {
	state := core.WalletAuthState{Connector: core.ConnectorInjected}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return state
	}

	var parsed core.WalletAuthState
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return state
	}

	if parsed.Address != nil && *parsed.Address != "" {
		state.Address = parsed.Address
	}
	if parsed.Connector != "" {
		state.Connector = parsed.Connector
	}
	return state
}

// Save overwrites the cached state
func (s *FileStore) Save(state core.WalletAuthState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode wallet state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write wallet state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace wallet state: %w", err)
	}
	return nil
}

// Clear removes the cached state
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear wallet state: %w", err)
	}
	return nil
}
