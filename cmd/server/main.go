// Package main provides the API server entry point for the agent trade
// ledger service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/adapter"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/api"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/config"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/pricing"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/service"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/storage"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.NewLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Connect to Postgres and apply pending migrations
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	if err := storage.RunMigrations(cfg.Database.Postgres.PostgresURL(), migrationsPath); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	// Connect to Redis for the queue fan-out
	queue, err := storage.NewRedisQueue(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer queue.Close()

	// Connect to ClickHouse for the raw event archive. Optional: an empty
	// host disables archiving.
	var archiver service.EventArchiver
	if cfg.Database.ClickHouse.Host != "" {
		clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to ClickHouse")
		}
		defer clickhouse.Close()

		initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := clickhouse.InitSchema(initCtx); err != nil {
			cancel()
			logger.WithError(err).Fatal("Failed to initialize ClickHouse schema")
		}
		cancel()
		archiver = storage.NewRawEventRepository(clickhouse)
	} else {
		logger.Warn("ClickHouse not configured, raw event archiving disabled")
	}

	logger.Info("Database connections established")

	// Initialize chain providers
	providers := adapter.NewRegistry(
		adapter.NewSolanaProvider(cfg.Chains.Solana.BaseURL, cfg.Chains.Solana.APIKey, logger),
		adapter.NewMonadProvider(cfg.Chains.Monad.BaseURL, cfg.Chains.Monad.APIKey, logger),
	)

	// Initialize the price oracle: pair data first, market API as fallback
	dexScreener := pricing.NewDexScreenerSource("")
	oracle := pricing.NewOracle(
		[]pricing.Source{dexScreener, pricing.NewCoinGeckoSource("")},
		cfg.Pricing.CacheTTL,
		logger,
	)

	// Initialize repositories
	tradeRepo := storage.NewTradeRepository(postgres)
	walletRepo := storage.NewWalletRepository(postgres)
	rankingRepo := storage.NewRankingRepository(postgres)

	// Real-time subscription hub
	hub := ws.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	// Initialize services
	ingestor := service.NewIngestor(tradeRepo, queue, hub, oracle, logger)
	processor := service.NewWebhookProcessor(walletRepo, ingestor, archiver, logger)
	backfill := service.NewBackfillEngine(providers, ingestor, logger)
	walletService := service.NewWalletService(walletRepo, providers, backfill, cfg.Webhook.Secret, logger)
	rankingEngine := service.NewRankingEngine(
		tradeRepo, rankingRepo, walletRepo, dexScreener,
		cfg.Ranking.OrphanRetention, logger,
	)

	// Scheduled reconciliation poll
	poller := service.NewPoller(walletRepo, backfill, cfg.Poll.Interval, cfg.Poll.Window, cfg.Poll.PageLimit, logger)
	poller.Start()
	defer poller.Stop()

	// Periodic ranking recompute
	rankingStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Ranking.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := rankingEngine.Recompute(context.Background()); err != nil {
					logger.WithError(err).Error("Ranking recompute failed")
				}
			case <-rankingStop:
				return
			}
		}
	}()
	defer close(rankingStop)

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		WebhookSecret:   cfg.Webhook.Secret,
	}

	server := api.NewServer(serverConfig, processor, walletService, rankingRepo, backfill, walletRepo, hub.ServeWS, logger)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
