package ports

import (
	"context"

	"github.com/layer-3/agora-gate/core"
)

// EventPublisher publishes auth audit events to other instances
type EventPublisher interface {
	PublishGrant(ctx context.Context, grant *core.Grant) error
	PublishLogout(ctx context.Context, address string) error
}
