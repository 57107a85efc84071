package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"auction-ledger-service/internal/adapters/broadcaster"
	"auction-ledger-service/internal/adapters/db"
	"auction-ledger-service/internal/adapters/memory"
	"auction-ledger-service/internal/adapters/redis"
	"auction-ledger-service/internal/adapters/ws"
	"auction-ledger-service/internal/app"
	"auction-ledger-service/internal/config"
	"auction-ledger-service/internal/ports/outbound"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting Auction Ledger Service...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the persistence backend
	registry, ledger, cleanup, err := buildBackend(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Ledger.Backend).Msg("Failed to initialize ledger backend")
	}
	defer cleanup()

	log.Info().Str("backend", cfg.Ledger.Backend).Msg("Ledger backend initialized")

	// Create Redis client
	redisClient := redis.NewClient(cfg)
	if err := redis.PingRedis(redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	// Create Redis broadcaster
	redisBroadcaster := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})
	log.Info().Msg("Redis broadcaster initialized")

	// Create the ledger service
	ledgerService := app.NewLedgerService(app.LedgerServiceParams{
		Registry:    registry,
		Ledger:      ledger,
		Broadcaster: redisBroadcaster,
		Logger:      log.Logger,
	})

	log.Info().Msg("Ledger service initialized")

	wsServer := ws.NewServer(ws.ServerParams{
		Config:        cfg,
		LedgerService: ledgerService,
		Broadcaster:   redisBroadcaster,
		Logger:        log.Logger,
	})

	log.Info().Msg("WebSocket server initialized")

	// Start WebSocket server
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting WebSocket server")
		if err := wsServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start WebSocket server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop WebSocket server
	if err := wsServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping WebSocket server")
	}

	log.Info().Msg("Graceful shutdown completed")
}

// buildBackend wires the identity registry and bid ledger for the configured
// backend. The returned cleanup releases backend resources on shutdown.
func buildBackend(cfg *config.Config) (outbound.IdentityRegistry, outbound.BidLedger, func(), error) {
	switch cfg.Ledger.Backend {
	case config.BackendMemory:
		registry := memory.NewRegistry()
		return registry, memory.NewLedger(registry), func() {}, nil

	default:
		dbConn, err := db.NewConnection(cfg)
		if err != nil {
			return nil, nil, nil, err
		}

		if err := dbConn.InitSchema(); err != nil {
			dbConn.Close()
			return nil, nil, nil, err
		}

		repoFactory := db.NewRepositoryFactory(dbConn)
		cleanup := func() {
			if err := dbConn.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing database connection")
			}
		}
		return repoFactory.GetIdentityRegistry(), repoFactory.GetBidLedger(), cleanup, nil
	}
}

func initLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.Logging.Format == "json" {
		// JSON format (default)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global logger
	zerolog.DefaultContextLogger = &log.Logger
}
