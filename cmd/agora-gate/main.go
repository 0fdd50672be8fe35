package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/layer-3/agora-gate/internal/config"
	"github.com/layer-3/agora-gate/internal/logger"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "agora-gate",
		Short: "Wallet-signature sessions and operator elevation for Project Agora",
		Long: `agora-gate fronts the Project Agora API with a cookie session gateway.

A wallet signs a one-time challenge to start a session; operators sign a
second challenge to unlock the admin routes for a short window.

Examples:
  agora-gate serve --config agora.yaml
  agora-gate issuer
  agora-gate login --connector key --private-key 0x...
  agora-gate admin`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")

	rootCmd.AddCommand(
		serveCmd(&configPath),
		issuerCmd(&configPath),
		loginCmd(&configPath),
		meCmd(&configPath),
		logoutCmd(&configPath),
		adminCmd(&configPath),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	log := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "agora-gate",
		Version:     version,
		Environment: cfg.Environment,
	})
	return cfg, log, nil
}

// runServer serves until SIGINT or SIGTERM, then drains in-flight requests
func runServer(srv *http.Server, log zerolog.Logger) error {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil

	case <-shutdown:
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
			return err
		}
		log.Info().Msg("server shutdown complete")
		return nil
	}
}
