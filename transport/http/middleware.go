package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/agora-gate/core"
	"github.com/layer-3/agora-gate/internal/logger"
	"github.com/layer-3/agora-gate/internal/metrics"
)

// Context keys set by the session middleware
const (
	ctxAccessToken = "accessToken"
	ctxAddress     = "sessionAddress"
)

// SameOrigin rejects requests whose Origin header names a different host.
// A missing Origin is allowed so non-browser clients keep working.
func SameOrigin(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		host := c.Request.Host
		if host == "" {
			m.ObserveOriginRejection()
			abortWithError(c, http.StatusBadRequest, core.ErrMissingHost)
			return
		}

		if origin != "http://"+host && origin != "https://"+host {
			m.ObserveOriginRejection()
			log := logger.FromContext(c.Request.Context())
			log.Warn().Str("origin", origin).Str("host", host).Msg("rejected cross-origin request")
			abortWithError(c, http.StatusBadRequest, core.ErrBadOrigin)
			return
		}

		c.Next()
	}
}

// RequireSession aborts with 401 unless the session token cookie is present
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := readCookie(c.Request, CookieAccessToken)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
			return
		}

		c.Set(ctxAccessToken, token)
		c.Set(ctxAddress, readCookie(c.Request, CookieAddress))
		c.Next()
	}
}

// RequireAdminAccess aborts with 401 unless the elevation cookie is set
func RequireAdminAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		if readCookie(c.Request, CookieAdminAccess) != "1" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Admin signature required"})
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"detail": err.Error()})
}
