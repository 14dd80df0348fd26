// Package main provides a CLI for a one-shot performance ranking recompute.
package main

import (
	"context"
	"log"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/config"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/pricing"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/service"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer postgres.Close()

	engine := service.NewRankingEngine(
		storage.NewTradeRepository(postgres),
		storage.NewRankingRepository(postgres),
		storage.NewWalletRepository(postgres),
		pricing.NewDexScreenerSource(""),
		cfg.Ranking.OrphanRetention,
		logger,
	)

	log.Println("Recomputing performance rankings...")
	if err := engine.Recompute(context.Background()); err != nil {
		log.Fatalf("Ranking recompute failed: %v", err)
	}
	log.Println("Ranking recompute complete")
}
