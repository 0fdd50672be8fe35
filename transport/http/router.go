package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/layer-3/agora-gate/internal/config"
	"github.com/layer-3/agora-gate/internal/logger"
	"github.com/layer-3/agora-gate/internal/metrics"
	"github.com/layer-3/agora-gate/service"
)

// RouterDeps groups what the BFF router needs
type RouterDeps struct {
	AuthService *service.AuthService
	Cookies     CookiePolicy
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer // serves /metrics when set
	Logger      zerolog.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(deps.Logger))

	authHandlers := NewAuthHandlers(deps.AuthService, deps.Cookies)
	adminHandlers := NewAdminHandlers(deps.AuthService, deps.Cookies)
	sameOrigin := SameOrigin(deps.Metrics)

	// Session routes
	auth := router.Group("/api/auth")
	{
		auth.GET("/me", authHandlers.Me)
		auth.POST("/challenge", sameOrigin, authHandlers.Challenge)
		auth.POST("/verify", sameOrigin, authHandlers.Verify)
		auth.POST("/logout", sameOrigin, authHandlers.Logout)
	}

	// Elevation routes
	access := router.Group("/api/admin/access", sameOrigin)
	{
		access.GET("/status", adminHandlers.Status)
		access.POST("/challenge", RequireSession(), adminHandlers.Challenge)
		access.POST("/verify", RequireSession(), adminHandlers.Verify)
	}

	// Operator-only proxies
	admin := router.Group("/api/admin", sameOrigin, RequireAdminAccess(), RequireSession())
	{
		admin.GET("/metrics", adminHandlers.ProxyGet("/api/v1/admin/metrics"))
		admin.GET("/onchain/cursors", adminHandlers.ProxyGet("/api/v1/admin/onchain/cursors", "limit"))
		admin.POST("/onchain/cursors", adminHandlers.ProxyPost("/api/v1/admin/onchain/cursors"))
		admin.GET("/onchain/suggested_cursor_keys", adminHandlers.ProxyGet("/api/v1/admin/onchain/suggested_cursor_keys"))
		admin.POST("/onchain/sync_once", adminHandlers.ProxyPost("/api/v1/admin/onchain/sync_once"))
		admin.GET("/anchors", adminHandlers.ProxyGet("/api/v1/admin/anchors", "limit"))
		admin.GET("/donations/events", adminHandlers.ProxyGet("/api/v1/admin/donations/events", "limit"))
		admin.POST("/jobs/anchor_receipt", adminHandlers.AnchorReceipt)
	}

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}

// NewServer wraps handler with the per-IP rate limit and applies the server timeouts
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	if cfg.RateLimit.Enabled && cfg.RateLimit.Limit > 0 {
		handler = httprate.LimitByIP(cfg.RateLimit.Limit, cfg.RateLimit.Window.Duration)(handler)
	}

	return &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}
}
