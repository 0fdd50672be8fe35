package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/agora-gate/core"
)

func subscribe(t *testing.T, pubsub *gochannel.GoChannel, topic string) <-chan *message.Message {
	t.Helper()
	ch, err := pubsub.Subscribe(context.Background(), topic)
	require.NoError(t, err)
	return ch
}

func receive(t *testing.T, ch <-chan *message.Message) AuthEvent {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		var ev AuthEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &ev))
		assert.NotEmpty(t, msg.UUID)
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return AuthEvent{}
	}
}

func TestPublishGrantRoutesByScope(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	logins := subscribe(t, pubsub, "agora.auth.login")
	elevations := subscribe(t, pubsub, "agora.admin.elevated")

	p := NewWatermillPublisher(pubsub, "agora")

	require.NoError(t, p.PublishGrant(context.Background(), &core.Grant{
		Scope:       core.ScopeLogin,
		Address:     "0xabc",
		AccessToken: "secret",
	}))
	ev := receive(t, logins)
	assert.Equal(t, core.ScopeLogin, ev.Scope)
	assert.Equal(t, "0xabc", ev.Address)

	require.NoError(t, p.PublishGrant(context.Background(), &core.Grant{Scope: core.ScopeAdmin, Address: "0xabc"}))
	ev = receive(t, elevations)
	assert.Equal(t, core.ScopeAdmin, ev.Scope)
}

func TestPublishLogout(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	logouts := subscribe(t, pubsub, "custom.auth.logout")
	p := NewWatermillPublisher(pubsub, "custom")

	require.NoError(t, p.PublishLogout(context.Background(), "0xdef"))
	ev := receive(t, logouts)
	assert.Equal(t, "0xdef", ev.Address)
	assert.Empty(t, ev.Scope)
}

func TestEventPayloadCarriesNoToken(t *testing.T) {
	payload, err := json.Marshal(AuthEvent{Scope: core.ScopeLogin, Address: "0xabc"})
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "token")
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.PublishGrant(context.Background(), &core.Grant{}))
	assert.NoError(t, p.PublishLogout(context.Background(), "0xabc"))
}
