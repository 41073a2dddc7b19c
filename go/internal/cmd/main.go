package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fidan-app/focus-server/go/internal/focus"
	"github.com/fidan-app/focus-server/go/internal/gateway"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration; the file is optional
	configPath := getEnv("CONFIG_PATH", "config.yaml")
	config, err := loadConfig(configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", configPath).Msg("using default configuration")
	}

	sessionCfg := config.sessionConfig()
	port := config.port()
	clock := clockwork.NewRealClock()

	log.Info().
		Str("port", port).
		Dur("default_duration", sessionCfg.DefaultDuration).
		Int("max_participants", sessionCfg.MaxParticipants).
		Msg("starting focus server")

	// Wire the core: registry -> scheduler -> app, all broadcasting through
	// the gateway connection manager
	connectionManager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	registry := focus.NewRegistry(sessionCfg, clock)
	scheduler := focus.NewScheduler(registry, connectionManager, clock, sessionCfg)
	app := focus.NewApp(registry, scheduler, connectionManager)
	reaper := focus.NewReaper(registry, clock, sessionCfg)

	gatewayService := gateway.NewService(connectionManager, app, registry, clock)
	server := setupServer(port, gatewayService)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go gatewayService.Start(ctx)
	go reaper.Run(ctx)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()

	log.Info().Msg("focus server shutdown complete")
}
