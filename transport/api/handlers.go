package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/agora-gate/core"
	"github.com/layer-3/agora-gate/service"
)

// IssuerHandlers contains HTTP handlers for the issuer endpoints
type IssuerHandlers struct {
	issuer *service.IssuerService
}

// NewIssuerHandlers creates new issuer handlers
func NewIssuerHandlers(issuer *service.IssuerService) *IssuerHandlers {
	return &IssuerHandlers{issuer: issuer}
}

// Challenge handles the login challenge request
func (h *IssuerHandlers) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "address is required"})
		return
	}

	challenge, err := h.issuer.CreateChallenge(c.Request.Context(), req.Address)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}

// Verify handles the login verify request
func (h *IssuerHandlers) Verify(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "address and signature are required"})
		return
	}

	token, err := h.issuer.Login(c.Request.Context(), req.Address, req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Me returns the address behind the bearer token
func (h *IssuerHandlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"address": c.GetString("userAddress")})
}

// AdminChallenge issues an elevation challenge for the bearer's address
func (h *IssuerHandlers) AdminChallenge(c *gin.Context) {
	challenge, err := h.issuer.CreateAdminChallenge(c.Request.Context(), c.GetString("accessToken"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}

// AdminVerify checks the elevation signature against the operator allowlist
func (h *IssuerHandlers) AdminVerify(c *gin.Context) {
	var req struct {
		Signature string `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "signature is required"})
		return
	}

	access, err := h.issuer.VerifyAdmin(c.Request.Context(), c.GetString("accessToken"), req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, access)
}

// respondError maps issuer errors onto status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAddress):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid address"})
	case errors.Is(err, core.ErrInvalidChallenge):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No valid challenge (expired or missing)"})
	case errors.Is(err, core.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Signature verification failed"})
	case errors.Is(err, core.ErrTokenExpired), errors.Is(err, core.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid/expired token"})
	case errors.Is(err, core.ErrNotOperator):
		c.JSON(http.StatusForbidden, gin.H{"detail": "Not an operator"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error"})
	}
}
