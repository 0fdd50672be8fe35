package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/layer-3/agora-gate/core"
	"github.com/layer-3/agora-gate/ports"
)

// MemoryStore is an in-memory implementation of the ChallengeStore interface
type MemoryStore struct {
	challenges map[string]memoryEntry
	mu         sync.Mutex
	now        func() time.Time
}

type memoryEntry struct {
	challenge core.IssuedChallenge
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.ChallengeStore {
	return &MemoryStore{
		challenges: make(map[string]memoryEntry),
		now:        time.Now,
	}
}

// PutChallenge stores a challenge, replacing any outstanding one for the same scope and address
func (s *MemoryStore) PutChallenge(ctx context.Context, challenge *core.IssuedChallenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	s.challenges[challengeKey(challenge.Scope, challenge.Address)] = memoryEntry{
		challenge: *challenge,
		expiresAt: now.Add(ttl),
	}

	return nil
}

// TakeChallenge returns and removes the challenge. Expired entries are treated as missing.
func (s *MemoryStore) TakeChallenge(ctx context.Context, scope core.Scope, address string) (*core.IssuedChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := challengeKey(scope, address)
	entry, exists := s.challenges[key]
	if !exists {
		return nil, core.ErrInvalidChallenge
	}
	delete(s.challenges, key)

	if !s.now().Before(entry.expiresAt) {
		return nil, core.ErrInvalidChallenge
	}

	challenge := entry.challenge
	return &challenge, nil
}

// sweep drops expired entries. Callers hold the lock.
func (s *MemoryStore) sweep(now time.Time) {
	for key, entry := range s.challenges {
		if !now.Before(entry.expiresAt) {
			delete(s.challenges, key)
		}
	}
}

func challengeKey(scope core.Scope, address string) string {
	return string(scope) + ":" + strings.ToLower(strings.TrimSpace(address))
}
