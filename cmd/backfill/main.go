// Package main provides a CLI for backfilling a registered wallet's
// historical swap activity into the trade ledger.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/adapter"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/config"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/pricing"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/service"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/storage"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

func main() {
	var (
		address    = flag.String("address", "", "Wallet address to backfill (required)")
		chain      = flag.String("chain", "solana", "Chain: solana, monad")
		sinceHours = flag.Int("since-hours", 0, "Only ingest activity newer than this many hours (0 = full history)")
		limit      = flag.Int("limit", 0, "Signature page size (0 = provider default)")
	)
	flag.Parse()

	if *address == "" {
		log.Fatal("-address is required")
	}
	targetChain := types.Chain(*chain)
	if !targetChain.IsValid() {
		log.Fatalf("Unsupported chain: %s", *chain)
	}

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

	tradeRepo := storage.NewTradeRepository(postgres)
	walletRepo := storage.NewWalletRepository(postgres)

	providers := adapter.NewRegistry(
		adapter.NewSolanaProvider(cfg.Chains.Solana.BaseURL, cfg.Chains.Solana.APIKey, logger),
		adapter.NewMonadProvider(cfg.Chains.Monad.BaseURL, cfg.Chains.Monad.APIKey, logger),
	)
	oracle := pricing.NewOracle(
		[]pricing.Source{pricing.NewDexScreenerSource(""), pricing.NewCoinGeckoSource("")},
		cfg.Pricing.CacheTTL,
		logger,
	)

	// Tooling writes straight to the ledger; no queue or realtime fan-out.
	ingestor := service.NewIngestor(tradeRepo, nil, nil, oracle, logger)
	engine := service.NewBackfillEngine(providers, ingestor, logger)

	ctx := context.Background()
	wallet, err := service.ResolveWallet(ctx, walletRepo, *address, targetChain)
	if err != nil {
		log.Fatalf("Failed to resolve wallet: %v", err)
	}

	opts := service.BackfillOptions{Limit: *limit}
	if *sinceHours > 0 {
		opts.SinceTime = time.Now().UTC().Add(-time.Duration(*sinceHours) * time.Hour)
	}

	log.Printf("Backfilling %s (%s)...", wallet.WalletAddress, wallet.Chain)
	result, err := engine.Backfill(ctx, wallet, opts)
	if err != nil {
		log.Fatalf("Backfill failed: %v", err)
	}

	log.Printf("Backfill complete: %d signatures seen, %d trades inserted", result.TotalSeen, result.Inserted)
}
