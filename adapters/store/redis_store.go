package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/agora-gate/core"
	"github.com/layer-3/agora-gate/ports"
)

// RedisStore is a Redis implementation of the ChallengeStore interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

type redisChallenge struct {
	Scope     core.Scope `json:"scope"`
	Address   string     `json:"address"`
	Nonce     string     `json:"nonce"`
	Message   string     `json:"message"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) ports.ChallengeStore {
	return &RedisStore{
		client: client,
		prefix: "agora:challenge:",
	}
}

// PutChallenge stores the challenge with the given expiration
func (s *RedisStore) PutChallenge(ctx context.Context, challenge *core.IssuedChallenge, ttl time.Duration) error {
	payload, err := json.Marshal(redisChallenge{
		Scope:     challenge.Scope,
		Address:   challenge.Address,
		Nonce:     challenge.Nonce,
		Message:   challenge.Message,
		ExpiresAt: challenge.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}

	if err := s.client.Set(ctx, s.key(challenge.Scope, challenge.Address), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	return nil
}

// TakeChallenge atomically reads and deletes the challenge
func (s *RedisStore) TakeChallenge(ctx context.Context, scope core.Scope, address string) (*core.IssuedChallenge, error) {
	raw, err := s.client.GetDel(ctx, s.key(scope, address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrInvalidChallenge
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take challenge: %w", err)
	}

	var stored redisChallenge
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}

	return &core.IssuedChallenge{
		Scope:     stored.Scope,
		Address:   stored.Address,
		Nonce:     stored.Nonce,
		Message:   stored.Message,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

func (s *RedisStore) key(scope core.Scope, address string) string {
	return s.prefix + challengeKey(scope, address)
}
