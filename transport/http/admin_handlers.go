package http

import (
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/agora-gate/core"
	"github.com/layer-3/agora-gate/service"
)

// AdminHandlers serves the elevation protocol and the operator-only proxies
type AdminHandlers struct {
	authService *service.AuthService
	cookies     CookiePolicy
}

// NewAdminHandlers creates new admin handlers
func NewAdminHandlers(authService *service.AuthService, cookies CookiePolicy) *AdminHandlers {
	return &AdminHandlers{
		authService: authService,
		cookies:     cookies,
	}
}

type adminVerifyRequest struct {
	Signature string `json:"signature"`
}

// Status reports whether the elevation cookie is present
func (h *AdminHandlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": readCookie(c.Request, CookieAdminAccess) == "1"})
}

// Challenge requests an admin challenge with the session bearer
func (h *AdminHandlers) Challenge(c *gin.Context) {
	data, err := h.authService.Challenge(c.Request.Context(), core.ScopeAdmin, "", c.GetString(ctxAccessToken))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// Verify submits the admin signature and sets the elevation cookie on success
func (h *AdminHandlers) Verify(c *gin.Context) {
	var req adminVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request"})
		return
	}

	grant, err := h.authService.Verify(c.Request.Context(), core.ScopeAdmin, service.VerifyRequest{
		Address:   c.GetString(ctxAddress),
		Signature: req.Signature,
	}, c.GetString(ctxAccessToken))
	if err != nil {
		h.fail(c, err)
		return
	}

	h.cookies.SetAdminAccess(c.Writer)
	c.Data(http.StatusOK, "application/json; charset=utf-8", grant.Payload)
}

// ProxyGet forwards a GET to path, passing through only the named query parameters
func (h *AdminHandlers) ProxyGet(path string, passthrough ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := url.Values{}
		for _, name := range passthrough {
			if v := c.Query(name); v != "" {
				query.Set(name, v)
			}
		}

		data, err := h.authService.AdminGet(c.Request.Context(), path, query, c.GetString(ctxAccessToken))
		if err != nil {
			h.fail(c, err)
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	}
}

// ProxyPost forwards the JSON request body to path
func (h *AdminHandlers) ProxyPost(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request"})
			return
		}

		data, err := h.authService.AdminPost(c.Request.Context(), path, body, c.GetString(ctxAccessToken))
		if err != nil {
			h.fail(c, err)
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	}
}

// AnchorReceipt records an anchor receipt for the job named by job_id
func (h *AdminHandlers) AnchorReceipt(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request"})
		return
	}

	data, err := h.authService.AnchorReceipt(c.Request.Context(), body, c.GetString(ctxAccessToken))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *AdminHandlers) fail(c *gin.Context, err error) {
	if errors.Is(err, core.ErrNotAuthenticated) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}
	abortWithError(c, http.StatusBadRequest, err)
}
