package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/layer-3/agora-gate/internal/logger"
)

// NewRedisStreamPublisher connects a Watermill publisher to the Redis stream at url
func NewRedisStreamPublisher(url string, log zerolog.Logger) (message.Publisher, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid events redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, logger.NewWatermillAdapter(log))
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to create redis stream publisher: %w", err)
	}

	return pub, client, nil
}
