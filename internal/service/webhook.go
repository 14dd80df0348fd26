package service

import (
	"context"
	"strings"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// EventArchiver stores raw delivery items for audit. Best-effort.
type EventArchiver interface {
	Archive(ctx context.Context, event *models.RawEvent) error
}

// WebhookProcessor handles one chain-push delivery item end to end: archive,
// resolve the wallet, run the ingestion pipeline. Item failures are absorbed
// so one bad item never affects the rest of a delivery.
type WebhookProcessor struct {
	wallets  WalletStore
	ingestor *Ingestor
	archiver EventArchiver
	logger   *logging.Logger
}

// NewWebhookProcessor creates a webhook processor. archiver may be nil when
// the raw event archive is disabled.
func NewWebhookProcessor(wallets WalletStore, ingestor *Ingestor, archiver EventArchiver, logger *logging.Logger) *WebhookProcessor {
	return &WebhookProcessor{
		wallets:  wallets,
		ingestor: ingestor,
		archiver: archiver,
		logger:   logger.WithField("component", "webhook_processor"),
	}
}

// ProcessItem ingests one enhanced transaction pushed for a chain. The
// wallet is resolved from the transaction's fee payer; an unknown wallet is
// a silent skip, not an error.
func (p *WebhookProcessor) ProcessItem(ctx context.Context, chain types.Chain, tx types.EnhancedTransaction) {
	p.archive(chain, tx)

	address := tx.FeePayer
	if chain.IsEVM() {
		address = strings.ToLower(address)
	}
	if address == "" {
		p.logger.WithField("signature", tx.Signature).Debug("Delivery item has no fee payer, skipping")
		return
	}

	wallet, err := p.wallets.GetByAddress(ctx, address, chain)
	if err != nil {
		p.logger.WithError(err).WithField("signature", tx.Signature).Warn("Wallet lookup failed, skipping item")
		return
	}
	if wallet == nil {
		p.logger.WithFields(map[string]interface{}{
			"signature": tx.Signature,
			"address":   address,
		}).Debug("No registered wallet for delivery item, skipping")
		return
	}

	if _, err := p.ingestor.Ingest(ctx, tx, wallet); err != nil {
		p.logger.WithError(err).WithField("signature", tx.Signature).Warn("Failed to ingest delivery item, skipping")
	}
}

// archive stores the raw item in the background. Every delivery item is
// archived regardless of how its ingestion goes.
func (p *WebhookProcessor) archive(chain types.Chain, tx types.EnhancedTransaction) {
	if p.archiver == nil || len(tx.Raw) == 0 {
		return
	}
	event := &models.RawEvent{
		Chain:      chain,
		Source:     "webhook",
		Payload:    string(tx.Raw),
		ReceivedAt: time.Now().UTC(),
	}
	archiver := p.archiver
	Spawn(p.logger, "raw_event_archive", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return archiver.Archive(ctx, event)
	})
}
