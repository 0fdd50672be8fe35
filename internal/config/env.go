package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over YAML configuration.
func (c *Config) applyEnvOverrides() {
	setIfEnv(&c.Environment, "NODE_ENV")
	setIfEnv(&c.Environment, "AGORA_ENV")

	// Server
	setIfEnv(&c.Server.Address, "AGORA_SERVER_ADDRESS")

	// Upstream: server-only variable wins over the public one.
	setIfEnv(&c.Upstream.BaseURL, "NEXT_PUBLIC_AGORA_API_BASE")
	setIfEnv(&c.Upstream.BaseURL, "AGORA_API_BASE")
	setDurationIfEnv(&c.Upstream.Timeout, "AGORA_API_TIMEOUT")

	// Cookies
	if os.Getenv("AGORA_COOKIE_SECURE") == "1" {
		c.Cookies.Secure = true
	}
	setIfEnv(&c.Cookies.SameSite, "AGORA_COOKIE_SAMESITE")

	// Wallet
	setUintIfEnv(&c.Wallet.ChainID, "NEXT_PUBLIC_AGORA_CHAIN_ID")
	setUintIfEnv(&c.Wallet.ChainID, "AGORA_CHAIN_ID")
	setIfEnv(&c.Wallet.InjectedRPCURL, "AGORA_INJECTED_RPC_URL")
	setIfEnv(&c.Wallet.WalletConnectProjectID, "NEXT_PUBLIC_WALLETCONNECT_PROJECT_ID")
	setIfEnv(&c.Wallet.WalletConnectProjectID, "AGORA_WALLETCONNECT_PROJECT_ID")
	setIfEnv(&c.Wallet.WalletConnectBridgeURL, "AGORA_WALLETCONNECT_BRIDGE_URL")
	setIfEnv(&c.Wallet.StatePath, "AGORA_WALLET_STATE_PATH")

	// Logging
	setIfEnv(&c.Logging.Level, "AGORA_LOG_LEVEL")
	setIfEnv(&c.Logging.Format, "AGORA_LOG_FORMAT")

	// Rate limit
	setBoolIfEnv(&c.RateLimit.Enabled, "AGORA_RATE_LIMIT_ENABLED")
	setIntIfEnv(&c.RateLimit.Limit, "AGORA_RATE_LIMIT_PER_MINUTE")

	// Events
	setIfEnv(&c.Events.RedisURL, "AGORA_EVENTS_REDIS_URL")
	setIfEnv(&c.Events.TopicPrefix, "AGORA_EVENTS_TOPIC_PREFIX")

	// Issuer
	setIfEnv(&c.Issuer.Address, "AGORA_ISSUER_ADDRESS")
	setIfEnv(&c.Issuer.BaseURL, "AGORA_BASE_URL")
	setSecondsIfEnv(&c.Issuer.ChallengeTTL, "AGORA_CHALLENGE_TTL_SECONDS")
	setSecondsIfEnv(&c.Issuer.AccessTokenTTL, "AGORA_ACCESS_TOKEN_TTL_SECONDS")
	setSecondsIfEnv(&c.Issuer.AdminAccessTTL, "AGORA_ADMIN_ACCESS_TTL_SECONDS")
	setListIfEnv(&c.Issuer.Operators, "AGORA_OPERATOR_ADDRESSES")
	setListIfEnv(&c.Issuer.CORSOrigins, "AGORA_CORS_ORIGINS")
	setIfEnv(&c.Issuer.RedisURL, "AGORA_REDIS_URL")
	setIfEnv(&c.Issuer.SigningKey, "AGORA_SIGNING_KEY")
}

func setIfEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*target = parsed
		}
	}
}

func setIntIfEnv(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*target = parsed
		}
	}
}

func setUintIfEnv(target *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
			*target = parsed
		}
	}
}

func setDurationIfEnv(target *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if dur, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			target.Duration = dur
		}
	}
}

func setSecondsIfEnv(target *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
			target.Duration = time.Duration(secs) * time.Second
		}
	}
}

func setListIfEnv(target *[]string, key string) {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*target = out
}
