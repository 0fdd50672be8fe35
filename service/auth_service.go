package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/layer-3/agora-gate/core"
	"github.com/layer-3/agora-gate/internal/logger"
	"github.com/layer-3/agora-gate/internal/metrics"
	"github.com/layer-3/agora-gate/ports"
)

// Upstream auth endpoints per scope
var (
	challengePaths = map[core.Scope]string{
		core.ScopeLogin: "/api/v1/agents/auth/challenge",
		core.ScopeAdmin: "/api/v1/admin/access/challenge",
	}
	verifyPaths = map[core.Scope]string{
		core.ScopeLogin: "/api/v1/agents/auth/verify",
		core.ScopeAdmin: "/api/v1/admin/access/verify",
	}
)

// AuthService runs the challenge/verify handshake against the external API
// on behalf of the browser. It holds no state of its own.
type AuthService struct {
	upstream ports.Upstream
	eventPub ports.EventPublisher
	metrics  *metrics.Metrics
}

// NewAuthService creates a new authentication service
func NewAuthService(
	upstream ports.Upstream,
	eventPub ports.EventPublisher,
	m *metrics.Metrics,
) *AuthService {
	return &AuthService{
		upstream: upstream,
		eventPub: eventPub,
		metrics:  m,
	}
}

// VerifyRequest carries the signed challenge back to the external API
type VerifyRequest struct {
	Address   string // Signer address, required for ScopeLogin
	Signature string // Hex personal_sign signature
}

type verifyResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Challenge requests a challenge for the given scope and returns the upstream body as-is.
// ScopeAdmin requires the session bearer token.
func (s *AuthService) Challenge(ctx context.Context, scope core.Scope, address, bearer string) (json.RawMessage, error) {
	path, ok := challengePaths[scope]
	if !ok {
		return nil, fmt.Errorf("unknown scope %q", scope)
	}

	var (
		body  any
		token string
	)
	switch scope {
	case core.ScopeLogin:
		body = map[string]string{"address": address}
	case core.ScopeAdmin:
		if bearer == "" {
			return nil, core.ErrNotAuthenticated
		}
		body = map[string]any{}
		token = bearer
	}

	data, err := s.upstream.Post(ctx, path, body, token)
	s.metrics.ObserveAuth(string(scope), "challenge", err)
	if err != nil {
		return nil, err
	}

	return data, nil
}

// Verify submits the signature and returns the resulting grant. The grant's address is
// the request address for ScopeLogin and the session address for ScopeAdmin.
func (s *AuthService) Verify(ctx context.Context, scope core.Scope, req VerifyRequest, bearer string) (*core.Grant, error) {
	grant, err := s.verify(ctx, scope, req, bearer)
	s.metrics.ObserveAuth(string(scope), "verify", err)
	if err != nil {
		return nil, err
	}

	if err := s.eventPub.PublishGrant(ctx, grant); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("scope", string(scope)).Msg("failed to publish grant event")
	}

	return grant, nil
}

func (s *AuthService) verify(ctx context.Context, scope core.Scope, req VerifyRequest, bearer string) (*core.Grant, error) {
	path, ok := verifyPaths[scope]
	if !ok {
		return nil, fmt.Errorf("unknown scope %q", scope)
	}

	switch scope {
	case core.ScopeLogin:
		data, err := s.upstream.Post(ctx, path, map[string]string{
			"address":   req.Address,
			"signature": req.Signature,
		}, "")
		if err != nil {
			return nil, err
		}

		var resp verifyResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode verify response: %w", err)
		}
		if resp.AccessToken == "" {
			return nil, core.ErrMissingAccessToken
		}

		return &core.Grant{
			Scope:       scope,
			Address:     req.Address,
			AccessToken: resp.AccessToken,
			Payload:     data,
		}, nil

	default:
		if bearer == "" {
			return nil, core.ErrNotAuthenticated
		}

		data, err := s.upstream.Post(ctx, path, map[string]string{
			"signature": req.Signature,
		}, bearer)
		if err != nil {
			return nil, err
		}

		return &core.Grant{
			Scope:   scope,
			Address: req.Address,
			Payload: data,
		}, nil
	}
}

// Logout publishes the logout event. The bearer token itself stays valid upstream
// until it expires; only the cookies are dropped.
func (s *AuthService) Logout(ctx context.Context, address string) {
	s.metrics.ObserveAuth(string(core.ScopeLogin), "logout", nil)
	if address == "" {
		return
	}

	if err := s.eventPub.PublishLogout(ctx, address); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("failed to publish logout event")
	}
}

// AdminGet forwards a read to an operator-only upstream route
func (s *AuthService) AdminGet(ctx context.Context, path string, query url.Values, bearer string) (json.RawMessage, error) {
	if bearer == "" {
		return nil, core.ErrNotAuthenticated
	}
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return s.upstream.Get(ctx, path, bearer)
}

// AdminPost forwards a write to an operator-only upstream route
func (s *AuthService) AdminPost(ctx context.Context, path string, body any, bearer string) (json.RawMessage, error) {
	if bearer == "" {
		return nil, core.ErrNotAuthenticated
	}
	if body == nil {
		body = map[string]any{}
	}
	return s.upstream.Post(ctx, path, body, bearer)
}

// AnchorReceipt records an anchor receipt for a job. job_id selects the upstream path and
// the remaining fields are forwarded as the body.
func (s *AuthService) AnchorReceipt(ctx context.Context, body map[string]any, bearer string) (json.RawMessage, error) {
	jobID, _ := body["job_id"].(string)
	if strings.TrimSpace(jobID) == "" {
		return nil, core.ErrJobIDRequired
	}

	rest := make(map[string]any, len(body))
	for k, v := range body {
		if k != "job_id" {
			rest[k] = v
		}
	}

	return s.AdminPost(ctx, "/api/v1/jobs/"+url.PathEscape(jobID)+"/anchor_receipt", rest, bearer)
}
