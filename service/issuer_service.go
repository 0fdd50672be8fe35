package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/layer-3/agora-gate/core"
	"github.com/layer-3/agora-gate/internal/eth"
	"github.com/layer-3/agora-gate/internal/metrics"
	"github.com/layer-3/agora-gate/ports"
)

// IssuerSettings tunes the reference issuer
type IssuerSettings struct {
	BaseURL        string
	ChallengeTTL   time.Duration
	AccessTokenTTL time.Duration
	AdminAccessTTL time.Duration
	Operators      []string
}

// AdminAccess is returned after a successful admin verify
type AdminAccess struct {
	OK               bool   `json:"ok"`
	Address          string `json:"address"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// IssuerService implements the external API's auth surface: challenges,
// signature verification, bearer tokens and the operator allowlist.
type IssuerService struct {
	tokenizer ports.Tokenizer
	store     ports.ChallengeStore
	metrics   *metrics.Metrics

	baseURL        string
	challengeTTL   time.Duration
	accessTTL      time.Duration
	adminAccessTTL time.Duration
	operators      map[string]struct{}

	now func() time.Time
}

// NewIssuerService creates a new issuer
func NewIssuerService(
	tokenizer ports.Tokenizer,
	store ports.ChallengeStore,
	settings IssuerSettings,
	m *metrics.Metrics,
) *IssuerService {
	operators := make(map[string]struct{}, len(settings.Operators))
	for _, op := range settings.Operators {
		operators[eth.NormalizeAddress(op)] = struct{}{}
	}

	return &IssuerService{
		tokenizer:      tokenizer,
		store:          store,
		metrics:        m,
		baseURL:        settings.BaseURL,
		challengeTTL:   orDefault(settings.ChallengeTTL, 5*time.Minute),
		accessTTL:      orDefault(settings.AccessTokenTTL, 24*time.Hour),
		adminAccessTTL: orDefault(settings.AdminAccessTTL, 10*time.Minute),
		operators:      operators,
		now:            time.Now,
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// CreateChallenge issues a login challenge for address, replacing any outstanding one
func (s *IssuerService) CreateChallenge(ctx context.Context, address string) (*core.Challenge, error) {
	if err := eth.ValidateAddress(address); err != nil {
		return nil, err
	}
	return s.issue(ctx, core.ScopeLogin, eth.NormalizeAddress(address))
}

// Login verifies a signed login challenge and mints a bearer token
func (s *IssuerService) Login(ctx context.Context, address, signature string) (string, error) {
	if err := eth.ValidateAddress(address); err != nil {
		return "", err
	}
	addr := eth.NormalizeAddress(address)

	if err := s.consume(ctx, core.ScopeLogin, addr, signature); err != nil {
		return "", err
	}

	now := s.now()
	session := &core.IssuedSession{
		ID:        uuid.New().String(),
		Address:   addr,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.accessTTL),
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return "", fmt.Errorf("failed to create access token: %w", err)
	}

	return token, nil
}

// ValidateAccessToken returns the session behind a bearer token
func (s *IssuerService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.IssuedSession, error) {
	session, err := s.tokenizer.TokenToSession(accessToken)
	if err != nil {
		return nil, err
	}

	if s.now().After(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}

	return session, nil
}

// CreateAdminChallenge issues an elevation challenge for the holder of accessToken
func (s *IssuerService) CreateAdminChallenge(ctx context.Context, accessToken string) (*core.Challenge, error) {
	session, err := s.ValidateAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, core.ScopeAdmin, session.Address)
}

// VerifyAdmin checks the elevation signature and the operator allowlist
func (s *IssuerService) VerifyAdmin(ctx context.Context, accessToken, signature string) (*AdminAccess, error) {
	session, err := s.ValidateAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if err := s.consume(ctx, core.ScopeAdmin, session.Address, signature); err != nil {
		return nil, err
	}

	if !s.IsOperator(session.Address) {
		return nil, core.ErrNotOperator
	}

	return &AdminAccess{
		OK:               true,
		Address:          session.Address,
		ExpiresInSeconds: int(s.adminAccessTTL / time.Second),
	}, nil
}

// IsOperator reports whether address is on the operator allowlist
func (s *IssuerService) IsOperator(address string) bool {
	_, ok := s.operators[eth.NormalizeAddress(address)]
	return ok
}

func (s *IssuerService) issue(ctx context.Context, scope core.Scope, addr string) (*core.Challenge, error) {
	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)

	issued := &core.IssuedChallenge{
		Scope:     scope,
		Address:   addr,
		Nonce:     nonce,
		Message:   BuildMessage(scope, s.baseURL, addr, nonce),
		ExpiresAt: s.now().Add(s.challengeTTL),
	}

	if err := s.store.PutChallenge(ctx, issued, s.challengeTTL); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}
	s.metrics.ObserveChallenge(string(scope))

	return &core.Challenge{
		Address:          addr,
		Nonce:            nonce,
		MessageToSign:    issued.Message,
		ExpiresInSeconds: int(s.challengeTTL / time.Second),
	}, nil
}

// consume takes the outstanding challenge and checks the signature against it.
// The challenge is spent either way, so a failed attempt must restart from a new challenge.
func (s *IssuerService) consume(ctx context.Context, scope core.Scope, addr, signature string) error {
	challenge, err := s.store.TakeChallenge(ctx, scope, addr)
	if err != nil {
		return err
	}

	if !s.now().Before(challenge.ExpiresAt) {
		return core.ErrInvalidChallenge
	}

	if err := eth.VerifyPersonal(addr, challenge.Message, signature); err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}

	return nil
}

// BuildMessage renders the exact text a wallet signs for a challenge
func BuildMessage(scope core.Scope, baseURL, address, nonce string) string {
	title := "Project Agora Authentication"
	statement := "Sign to authenticate as this agent."
	if scope == core.ScopeAdmin {
		title = "Project Agora Admin Access"
		statement = "Sign to enter the admin dashboard."
	}

	var b strings.Builder
	b.WriteString(title + "\n")
	b.WriteString("Base URL: " + baseURL + "\n")
	b.WriteString("Address: " + eth.NormalizeAddress(address) + "\n")
	b.WriteString("Nonce: " + nonce + "\n")
	b.WriteString("Statement: " + statement + "\n")
	return b.String()
}
