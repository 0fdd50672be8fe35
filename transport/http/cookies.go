package http

import (
	"net/http"

	"github.com/layer-3/agora-gate/internal/config"
)

// Cookie names
const (
	CookieAccessToken = "agora_access_token"
	CookieAddress     = "agora_address"
	CookieAdminAccess = "agora_admin_access"
)

// CookiePolicy holds the attributes shared by every cookie the BFF writes
type CookiePolicy struct {
	Secure        bool
	SameSite      http.SameSite
	SessionMaxAge int // seconds
	AdminMaxAge   int // seconds
}

// NewCookiePolicy derives the policy from configuration
func NewCookiePolicy(cfg *config.Config) CookiePolicy {
	return CookiePolicy{
		Secure:        cfg.Cookies.Secure || cfg.IsProduction(),
		SameSite:      cfg.Cookies.SameSiteMode(),
		SessionMaxAge: cfg.Cookies.SessionMaxAge,
		AdminMaxAge:   cfg.Cookies.AdminMaxAge,
	}
}

// SetSession writes the bearer token and address cookies
func (p CookiePolicy) SetSession(w http.ResponseWriter, token, address string) {
	p.set(w, CookieAccessToken, token, p.SessionMaxAge)
	p.set(w, CookieAddress, address, p.SessionMaxAge)
}

// SetAdminAccess writes the short-lived elevation cookie
func (p CookiePolicy) SetAdminAccess(w http.ResponseWriter) {
	p.set(w, CookieAdminAccess, "1", p.AdminMaxAge)
}

// ClearSession expires the session cookies and the elevation cookie
func (p CookiePolicy) ClearSession(w http.ResponseWriter) {
	for _, name := range []string{CookieAccessToken, CookieAddress, CookieAdminAccess} {
		p.set(w, name, "", -1)
	}
}

// set uses net/http directly: gin's SetCookie escapes the value, and the
// address cookie must round-trip byte for byte. maxAge < 0 emits Max-Age=0.
func (p CookiePolicy) set(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	})
}

func readCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
