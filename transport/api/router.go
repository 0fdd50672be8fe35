package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/layer-3/agora-gate/internal/logger"
	"github.com/layer-3/agora-gate/service"
)

// SetupRouter sets up the Gin router for the reference issuer
func SetupRouter(issuer *service.IssuerService, gatherer prometheus.Gatherer, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log))

	handlers := NewIssuerHandlers(issuer)

	agents := router.Group("/api/v1/agents")
	{
		agents.POST("/auth/challenge", handlers.Challenge)
		agents.POST("/auth/verify", handlers.Verify)
		agents.GET("/me", AuthMiddleware(issuer), handlers.Me)
	}

	access := router.Group("/api/v1/admin/access")
	access.Use(AuthMiddleware(issuer))
	{
		access.POST("/challenge", handlers.AdminChallenge)
		access.POST("/verify", handlers.AdminVerify)
	}

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return router
}

// WithCORS allows browser calls from the listed origins. No origins means no CORS headers.
func WithCORS(handler http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return handler
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}).Handler(handler)
}
