package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support string based YAML decoding.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses Go-style duration strings or bare numbers interpreted as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err == nil {
		d.Duration = parsed
		return nil
	}
	secs, convErr := time.ParseDuration(raw + "s")
	if convErr == nil {
		d.Duration = secs
		return nil
	}
	return fmt.Errorf("invalid duration value %q: %w", raw, err)
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds application configuration aggregated from file and environment.
type Config struct {
	Environment    string               `yaml:"environment" validate:"required"`
	Server         ServerConfig         `yaml:"server"`
	Upstream       UpstreamConfig       `yaml:"upstream"`
	Cookies        CookieConfig         `yaml:"cookies"`
	Wallet         WalletConfig         `yaml:"wallet"`
	Logging        LoggingConfig        `yaml:"logging"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Events         EventsConfig         `yaml:"events"`
	Issuer         IssuerConfig         `yaml:"issuer"`
}

// ServerConfig holds BFF HTTP server configuration.
type ServerConfig struct {
	Address      string   `yaml:"address" validate:"required"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
}

// UpstreamConfig points at the external REST API.
type UpstreamConfig struct {
	BaseURL string   `yaml:"base_url" validate:"required,url"`
	Timeout Duration `yaml:"timeout"`
}

// CookieConfig controls the attributes of every cookie the BFF writes.
type CookieConfig struct {
	Secure        bool   `yaml:"secure"`
	SameSite      string `yaml:"same_site" validate:"oneof=strict lax none"`
	SessionMaxAge int    `yaml:"session_max_age" validate:"gt=0"` // seconds
	AdminMaxAge   int    `yaml:"admin_max_age" validate:"gt=0"`   // seconds
}

// SameSiteMode maps the configured policy onto net/http.
func (c CookieConfig) SameSiteMode() http.SameSite {
	switch c.SameSite {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

// WalletConfig configures the client-side wallet adapter.
type WalletConfig struct {
	ChainID                uint64 `yaml:"chain_id" validate:"gt=0"`
	InjectedRPCURL         string `yaml:"injected_rpc_url" validate:"omitempty,url"`
	WalletConnectProjectID string `yaml:"walletconnect_project_id"`
	WalletConnectBridgeURL string `yaml:"walletconnect_bridge_url" validate:"omitempty,url"`
	StatePath              string `yaml:"state_path"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// RateLimitConfig bounds requests per client IP in front of the BFF.
type RateLimitConfig struct {
	Enabled bool     `yaml:"enabled"`
	Limit   int      `yaml:"limit" validate:"gte=0"`
	Window  Duration `yaml:"window"`
}

// CircuitBreakerConfig configures the breaker around upstream calls.
type CircuitBreakerConfig struct {
	Enabled             bool     `yaml:"enabled"`
	MaxRequests         uint32   `yaml:"max_requests"`
	Interval            Duration `yaml:"interval"`
	Timeout             Duration `yaml:"timeout"`
	ConsecutiveFailures uint32   `yaml:"consecutive_failures"`
}

// EventsConfig selects where auth audit events go. Empty RedisURL disables publishing.
type EventsConfig struct {
	RedisURL    string `yaml:"redis_url"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// IssuerConfig configures the reference upstream issuer.
type IssuerConfig struct {
	Address        string   `yaml:"address" validate:"required"`
	BaseURL        string   `yaml:"base_url" validate:"required"`
	ChallengeTTL   Duration `yaml:"challenge_ttl"`
	AccessTokenTTL Duration `yaml:"access_token_ttl"`
	AdminAccessTTL Duration `yaml:"admin_access_ttl"`
	Operators      []string `yaml:"operators" validate:"dive,eth_addr"`
	CORSOrigins    []string `yaml:"cors_origins"`
	RedisURL       string   `yaml:"redis_url"`
	SigningKey     string   `yaml:"signing_key"`
}

// IsProduction reports whether the deployment is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
