package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/layer-3/agora-gate/adapters/store"
	"github.com/layer-3/agora-gate/adapters/tokenizer"
	"github.com/layer-3/agora-gate/internal/config"
	"github.com/layer-3/agora-gate/internal/metrics"
	"github.com/layer-3/agora-gate/ports"
	"github.com/layer-3/agora-gate/service"
	"github.com/layer-3/agora-gate/transport/api"
	bff "github.com/layer-3/agora-gate/transport/http"
)

func issuerCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "issuer",
		Short: "Run the reference challenge issuer",
		Long: `Run a standalone implementation of the API's auth endpoints:
login and admin challenges, signature verification, bearer tokens
and the operator allowlist. Challenges live in Redis when
AGORA_REDIS_URL is set and in memory otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Issuer.Address = addr
			}
			return runIssuer(cfg, log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")

	return cmd
}

func runIssuer(cfg *config.Config, log zerolog.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	signKey, err := tokenizer.LoadSigningKey(cfg.Issuer.SigningKey)
	if err != nil {
		return err
	}
	if cfg.Issuer.SigningKey == "" {
		log.Warn().Msg("no signing key configured, tokens will not survive a restart")
	}

	var challenges ports.ChallengeStore
	if cfg.Issuer.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Issuer.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		challenges = store.NewRedisStore(redisClient)
	} else {
		challenges = store.NewMemoryStore()
	}

	registry := prometheus.NewRegistry()
	issuer := service.NewIssuerService(
		tokenizer.NewJWTTokenizer(signKey),
		challenges,
		service.IssuerSettings{
			BaseURL:        cfg.Issuer.BaseURL,
			ChallengeTTL:   cfg.Issuer.ChallengeTTL.Duration,
			AccessTokenTTL: cfg.Issuer.AccessTokenTTL.Duration,
			AdminAccessTTL: cfg.Issuer.AdminAccessTTL.Duration,
			Operators:      cfg.Issuer.Operators,
		},
		metrics.New(registry),
	)

	router := api.SetupRouter(issuer, registry, log)
	handler := api.WithCORS(router, cfg.Issuer.CORSOrigins)

	log.Info().
		Str("base_url", cfg.Issuer.BaseURL).
		Int("operators", len(cfg.Issuer.Operators)).
		Bool("redis", cfg.Issuer.RedisURL != "").
		Msg("issuer configured")

	srv := bff.NewServer(cfg, handler)
	srv.Addr = cfg.Issuer.Address
	return runServer(srv, log)
}
