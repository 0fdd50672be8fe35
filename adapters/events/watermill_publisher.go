package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/agora-gate/core"
	"github.com/layer-3/agora-gate/ports"
)

// Topic suffixes appended to the configured prefix
const (
	TopicLogin    = ".auth.login"
	TopicLogout   = ".auth.logout"
	TopicElevated = ".admin.elevated"
)

// AuthEvent is the audit record published for every grant and logout.
// It never carries tokens or signatures.
type AuthEvent struct {
	Scope      core.Scope `json:"scope,omitempty"`
	Address    string     `json:"address"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	prefix    string
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher. Topics are prefix + suffix.
func NewWatermillPublisher(publisher message.Publisher, prefix string) ports.EventPublisher {
	if prefix == "" {
		prefix = "agora"
	}
	return &WatermillPublisher{
		publisher: publisher,
		prefix:    prefix,
		now:       time.Now,
	}
}

// PublishGrant publishes a login or elevation event
func (p *WatermillPublisher) PublishGrant(ctx context.Context, grant *core.Grant) error {
	topic := p.prefix + TopicLogin
	if grant.Scope == core.ScopeAdmin {
		topic = p.prefix + TopicElevated
	}

	return p.publish(ctx, topic, AuthEvent{
		Scope:      grant.Scope,
		Address:    grant.Address,
		OccurredAt: p.now().UTC(),
	})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string) error {
	return p.publish(ctx, p.prefix+TopicLogout, AuthEvent{
		Address:    address,
		OccurredAt: p.now().UTC(),
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event AuthEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishGrant(context.Context, *core.Grant) error { return nil }
func (NoopPublisher) PublishLogout(context.Context, string) error     { return nil }
