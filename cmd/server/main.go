package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"p2pquotes/internal/api"
	"p2pquotes/internal/config"
	"p2pquotes/internal/controller"
	"p2pquotes/internal/p2p"
	"p2pquotes/internal/rates"
	"p2pquotes/internal/settings"
)

const version = "1.0.0"

func main() {
	// Load .env if present, real environment wins
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Logging.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Int("port", cfg.Server.Port).
		Str("version", version).
		Str("fiat", cfg.Marketplace.Fiat).
		Str("data_dir", cfg.Settings.DataDir).
		Msg("Starting quote service")

	// Open the settings store
	store, err := settings.Open(cfg.Settings.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open settings store")
	}

	// Build the marketplace and rates clients
	offersClient := p2p.NewClient(cfg.Marketplace.BaseURL,
		p2p.WithTimeout(cfg.Marketplace.Timeout),
		p2p.WithFiat(cfg.Marketplace.Fiat),
		p2p.WithRows(cfg.Marketplace.Rows),
		p2p.WithRateLimit(cfg.Marketplace.RateLimit, cfg.Marketplace.RateBurst),
		p2p.WithTradeURL(cfg.Marketplace.TradeURL),
	)
	ratesClient := rates.NewClient(cfg.Rates.URL,
		rates.WithTimeout(cfg.Rates.Timeout),
		rates.WithMaxRetries(cfg.Rates.MaxRetries),
	)

	// Create the quote controller
	ctrl := controller.New(offersClient, ratesClient, store, log.Logger)

	// Create API server
	serverConfig := api.ServerConfig{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Version:      version,
		LogLevel:     cfg.Logging.Level,
	}
	server, err := api.NewServer(serverConfig, ctrl, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	// Push committed view states to connected popups
	ctrl.Subscribe(server.BroadcastView)

	// Restore persisted filters and kick off the first fetches
	ctrl.Initialize(context.Background())

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Setup signal handling
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	case sig := <-shutdown:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown server gracefully")
	}

	ctrl.Close()

	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close settings store")
	}

	log.Info().Msg("Shutdown complete")
}
