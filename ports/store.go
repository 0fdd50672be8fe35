package ports

import (
	"context"
	"time"

	"github.com/layer-3/agora-gate/core"
)

// ChallengeStore keeps outstanding challenges until they are consumed or expire
type ChallengeStore interface {
	PutChallenge(ctx context.Context, challenge *core.IssuedChallenge, ttl time.Duration) error
	// TakeChallenge returns and deletes the challenge; a second call for the same key misses.
	TakeChallenge(ctx context.Context, scope core.Scope, address string) (*core.IssuedChallenge, error)
}
