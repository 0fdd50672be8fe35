package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/agora-gate/core"
	"github.com/layer-3/agora-gate/service"
)

// AuthHandlers contains HTTP handlers for the session endpoints
type AuthHandlers struct {
	authService *service.AuthService
	cookies     CookiePolicy
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, cookies CookiePolicy) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cookies:     cookies,
	}
}

type challengeRequest struct {
	Address string `json:"address"`
}

type verifyRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

// Challenge forwards a login challenge request and returns the upstream body unchanged
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request"})
		return
	}

	data, err := h.authService.Challenge(c.Request.Context(), core.ScopeLogin, req.Address, "")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// Verify checks the signature upstream and, on success, sets the session cookies.
// Every failure is a 401 and leaves the cookies untouched.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid request"})
		return
	}

	grant, err := h.authService.Verify(c.Request.Context(), core.ScopeLogin, service.VerifyRequest{
		Address:   req.Address,
		Signature: req.Signature,
	}, "")
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err)
		return
	}

	h.cookies.SetSession(c.Writer, grant.AccessToken, grant.Address)
	c.JSON(http.StatusOK, gin.H{"ok": true, "address": grant.Address})
}

// Me reports the cookie-derived session. It does not ask the external API whether
// the token is still accepted; protected calls still fail on their own.
func (h *AuthHandlers) Me(c *gin.Context) {
	info := core.SessionInfo{
		Authenticated: readCookie(c.Request, CookieAccessToken) != "",
	}
	if addr := readCookie(c.Request, CookieAddress); addr != "" {
		info.Address = &addr
	}

	c.JSON(http.StatusOK, info)
}

// Logout clears the session and elevation cookies
func (h *AuthHandlers) Logout(c *gin.Context) {
	h.authService.Logout(c.Request.Context(), readCookie(c.Request, CookieAddress))
	h.cookies.ClearSession(c.Writer)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
