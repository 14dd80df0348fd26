package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/adapter"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// BackfillOptions bounds a historical sync.
type BackfillOptions struct {
	// SinceTime stops pagination once a page's oldest signature predates it.
	// Zero means no time cut.
	SinceTime time.Time
	// Limit is the signature page size. Zero selects the provider default.
	Limit int
	// Mode selects the provider's batching profile. User-triggered runs
	// (registration, API trigger) pass interactive; scheduled and CLI runs
	// leave it empty and get the background profile.
	Mode adapter.FetchMode
}

// BackfillResult summarizes one backfill run.
type BackfillResult struct {
	Inserted  int `json:"inserted"`
	TotalSeen int `json:"totalSeen"`
}

// BackfillEngine pulls historical swap activity through the provider and
// writes it through the same pipeline as live webhooks. Safe to run
// concurrently with live ingestion and safe to re-run: convergence comes
// from the ledger's unique constraint, not from coordination.
type BackfillEngine struct {
	providers *adapter.Registry
	ingestor  *Ingestor
	logger    *logging.Logger
}

// NewBackfillEngine creates a backfill engine.
func NewBackfillEngine(providers *adapter.Registry, ingestor *Ingestor, logger *logging.Logger) *BackfillEngine {
	return &BackfillEngine{
		providers: providers,
		ingestor:  ingestor,
		logger:    logger.WithField("component", "backfill"),
	}
}

const defaultPageLimit = 100

// Backfill syncs a wallet's historical swaps into the ledger. Pagination is
// sequential: each page's last signature is the next page's cursor.
func (e *BackfillEngine) Backfill(ctx context.Context, wallet *models.AgentWallet, opts BackfillOptions) (BackfillResult, error) {
	var result BackfillResult

	provider, err := e.providers.Provider(wallet.Chain)
	if err != nil {
		return result, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	mode := opts.Mode
	if mode == "" {
		mode = adapter.FetchModeBackground
	}

	log := e.logger.WithFields(map[string]interface{}{
		"agent_id": wallet.AgentID,
		"chain":    wallet.Chain,
		"address":  wallet.WalletAddress,
	})
	log.Info("Starting backfill")

	before := ""
	for {
		page, err := provider.GetSignatures(ctx, wallet.WalletAddress, adapter.SignatureOptions{
			Limit:  limit,
			Before: before,
		})
		if err != nil {
			return result, fmt.Errorf("failed to fetch signature page: %w", err)
		}
		if len(page) == 0 {
			break
		}
		result.TotalSeen += len(page)

		var signatures []string
		reachedCut := false
		for _, info := range page {
			if !opts.SinceTime.IsZero() && info.BlockTime.Before(opts.SinceTime) {
				reachedCut = true
				continue
			}
			if info.Err {
				continue
			}
			signatures = append(signatures, info.Signature)
		}

		inserted, err := e.ingestSignatures(ctx, provider, wallet, signatures, mode)
		if err != nil {
			return result, err
		}
		result.Inserted += inserted

		if reachedCut || len(page) < limit {
			break
		}
		before = page[len(page)-1].Signature
	}

	log.WithFields(map[string]interface{}{
		"inserted":   result.Inserted,
		"total_seen": result.TotalSeen,
	}).Info("Backfill complete")
	return result, nil
}

// ingestSignatures fetches enhanced transactions for one page's retained
// signatures and writes each swap through the ingestor. Per-item failures
// are logged and skipped.
func (e *BackfillEngine) ingestSignatures(ctx context.Context, provider adapter.ChainProvider, wallet *models.AgentWallet, signatures []string, mode adapter.FetchMode) (int, error) {
	if len(signatures) == 0 {
		return 0, nil
	}

	transactions, err := provider.GetEnhancedTransactions(ctx, signatures, mode)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	inserted := 0
	for _, tx := range transactions {
		// The provider's own typing filters out non-swap transactions
		// before the parser runs.
		if tx.Type != "" && tx.Type != "SWAP" {
			continue
		}
		res, err := e.ingestor.Ingest(ctx, tx, wallet)
		if err != nil {
			e.logger.WithError(err).WithField("signature", tx.Signature).Warn("Failed to ingest transaction, skipping")
			continue
		}
		if res == IngestInserted {
			inserted++
		}
	}
	return inserted, nil
}

// ResolveWallet looks up the registered wallet for an address, shared by the
// CLI entrypoints.
func ResolveWallet(ctx context.Context, wallets WalletStore, address string, chain types.Chain) (*models.AgentWallet, error) {
	wallet, err := wallets.GetByAddress(ctx, address, chain)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, &types.ServiceError{
			Code:    "UNKNOWN_WALLET",
			Message: fmt.Sprintf("no registered wallet for address %s on %s", address, chain),
		}
	}
	return wallet, nil
}
