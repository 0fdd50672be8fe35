package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultEnvFile is loaded when present before environment overrides apply.
const DefaultEnvFile = ".env"

// Load reads configuration from an optional YAML file, loads .env, and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := cfg.parseFile(path); err != nil {
			return nil, err
		}
	}

	if err := loadEnvFile(DefaultEnvFile); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with the reference defaults.
func defaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Address:      ":3000",
			ReadTimeout:  Duration{Duration: 15 * time.Second},
			WriteTimeout: Duration{Duration: 15 * time.Second},
			IdleTimeout:  Duration{Duration: 60 * time.Second},
		},
		Upstream: UpstreamConfig{
			BaseURL: "https://api.project-agora.im",
			Timeout: Duration{Duration: 10 * time.Second},
		},
		Cookies: CookieConfig{
			SameSite:      "strict",
			SessionMaxAge: 60 * 60 * 24,
			AdminMaxAge:   600,
		},
		Wallet: WalletConfig{
			ChainID: 8453,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Limit:   120,
			Window:  Duration{Duration: time.Minute},
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:             true,
			MaxRequests:         3,
			Interval:            Duration{Duration: 60 * time.Second},
			Timeout:             Duration{Duration: 30 * time.Second},
			ConsecutiveFailures: 5,
		},
		Events: EventsConfig{
			TopicPrefix: "agora",
		},
		Issuer: IssuerConfig{
			Address:        ":8000",
			BaseURL:        "http://localhost:8000",
			ChallengeTTL:   Duration{Duration: 300 * time.Second},
			AccessTokenTTL: Duration{Duration: 86400 * time.Second},
			AdminAccessTTL: Duration{Duration: 600 * time.Second},
			CORSOrigins:    []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
	}
}

func (c *Config) parseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	return nil
}

// loadEnvFile loads KEY=VALUE pairs without overriding variables already set.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// finalize normalizes derived values and validates the result.
func (c *Config) finalize() error {
	c.Upstream.BaseURL = strings.TrimRight(strings.TrimSpace(c.Upstream.BaseURL), "/")
	c.Issuer.BaseURL = strings.TrimRight(strings.TrimSpace(c.Issuer.BaseURL), "/")
	c.Cookies.SameSite = strings.ToLower(strings.TrimSpace(c.Cookies.SameSite))
	if c.Cookies.SameSite == "" {
		c.Cookies.SameSite = "strict"
	}

	// Production always gets secure cookies regardless of the override.
	if c.IsProduction() {
		c.Cookies.Secure = true
	}

	return c.validate()
}
