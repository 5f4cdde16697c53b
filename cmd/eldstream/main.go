package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/fleetops/eldstream/internal/config"
	"github.com/fleetops/eldstream/internal/database"
	"github.com/fleetops/eldstream/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		os.Exit(1)
	}

	var out zerolog.Logger
	if cfg.Primary.Env == "development" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		out = zerolog.New(os.Stderr)
	}
	logger := out.With().Timestamp().Str("service", "eldstream").Logger()

	var nrApp *newrelic.Application
	if cfg.Observability.Enabled {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.Observability.ServiceName),
			newrelic.ConfigLicense(cfg.Observability.LicenseKey),
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("new relic application")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(ctx, cfg.Database.URL()); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}

	pool, err := database.NewPool(ctx, cfg, logger, nrApp != nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("database pool")
	}
	defer pool.Close()

	srv := server.New(cfg, pool, logger, nrApp)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}
