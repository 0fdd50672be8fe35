package ports

import (
	"context"
	"encoding/json"
)

// Upstream is the external REST API. An empty token sends no Authorization header.
type Upstream interface {
	Get(ctx context.Context, path string, token string) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any, token string) (json.RawMessage, error)
}
