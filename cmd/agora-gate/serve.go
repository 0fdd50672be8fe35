package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/layer-3/agora-gate/adapters/events"
	"github.com/layer-3/agora-gate/adapters/upstream"
	"github.com/layer-3/agora-gate/internal/config"
	"github.com/layer-3/agora-gate/internal/metrics"
	"github.com/layer-3/agora-gate/ports"
	"github.com/layer-3/agora-gate/service"
	bff "github.com/layer-3/agora-gate/transport/http"
)

func serveCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session gateway",
		Long: `Run the backend-for-frontend that turns wallet signatures into
HttpOnly session cookies and proxies operator routes to the API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			return runServe(cfg, log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")

	return cmd
}

func runServe(cfg *config.Config, log zerolog.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	api := upstream.New(cfg.Upstream.BaseURL,
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.Upstream.Timeout.Duration}),
		upstream.WithMetrics(m),
		upstream.WithBreaker(upstream.NewBreaker(cfg.CircuitBreaker)),
	)

	var eventPub ports.EventPublisher = events.NoopPublisher{}
	if cfg.Events.RedisURL != "" {
		pub, redisClient, err := events.NewRedisStreamPublisher(cfg.Events.RedisURL, log)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		defer pub.Close()
		eventPub = events.NewWatermillPublisher(pub, cfg.Events.TopicPrefix)
	}

	router := bff.SetupRouter(bff.RouterDeps{
		AuthService: service.NewAuthService(api, eventPub, m),
		Cookies:     bff.NewCookiePolicy(cfg),
		Metrics:     m,
		Gatherer:    registry,
		Logger:      log,
	})

	log.Info().
		Str("upstream", cfg.Upstream.BaseURL).
		Bool("secure_cookies", cfg.Cookies.Secure || cfg.IsProduction()).
		Msg("session gateway configured")

	return runServer(bff.NewServer(cfg, router), log)
}
