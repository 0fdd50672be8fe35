package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.project-agora.im", cfg.Upstream.BaseURL)
	assert.Equal(t, "strict", cfg.Cookies.SameSite)
	assert.Equal(t, http.SameSiteStrictMode, cfg.Cookies.SameSiteMode())
	assert.Equal(t, 86400, cfg.Cookies.SessionMaxAge)
	assert.Equal(t, 600, cfg.Cookies.AdminMaxAge)
	assert.False(t, cfg.Cookies.Secure)
	assert.Equal(t, uint64(8453), cfg.Wallet.ChainID)
	assert.Equal(t, 300*time.Second, cfg.Issuer.ChallengeTTL.Duration)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agora.yaml")
	content := `
environment: staging
upstream:
  base_url: "http://127.0.0.1:8000/"
  timeout: 3
cookies:
  same_site: LAX
  session_max_age: 3600
  admin_max_age: 600
issuer:
  operators:
    - "0xABCDEF0000000000000000000000000000000001"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Upstream.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout.Duration)
	assert.Equal(t, http.SameSiteLaxMode, cfg.Cookies.SameSiteMode())
	assert.Equal(t, 3600, cfg.Cookies.SessionMaxAge)
	assert.Equal(t, []string{"0xABCDEF0000000000000000000000000000000001"}, cfg.Issuer.Operators)
}

func TestProductionForcesSecureCookies(t *testing.T) {
	t.Setenv("AGORA_ENV", "production")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Cookies.Secure)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("AGORA_COOKIE_SAMESITE", "sometimes")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SameSite")
}

func TestLoadRejectsBadOperator(t *testing.T) {
	t.Setenv("AGORA_OPERATOR_ADDRESSES", "0x123")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Operators")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
