package ports

import "github.com/layer-3/agora-gate/core"

// Tokenizer converts between issued sessions and bearer tokens
type Tokenizer interface {
	SessionToToken(session *core.IssuedSession) (string, error)
	TokenToSession(token string) (*core.IssuedSession, error)
}
