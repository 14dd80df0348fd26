// Package service implements the ingestion, backfill, ranking and wallet
// registration flows over the storage and adapter layers.
package service

import (
	"context"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/parser"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/ws"
)

// TradeStore persists canonical trades.
type TradeStore interface {
	Insert(ctx context.Context, trade *models.Trade) (bool, error)
}

// WalletStore resolves registered agent wallets.
type WalletStore interface {
	GetByAddress(ctx context.Context, address string, chain types.Chain) (*models.AgentWallet, error)
	List(ctx context.Context) ([]*models.AgentWallet, error)
}

// QueuePublisher pushes trade events onto the async work queue.
type QueuePublisher interface {
	Publish(ctx context.Context, event interface{}) error
}

// Broadcaster relays trade events to real-time subscribers.
type Broadcaster interface {
	Broadcast(event *ws.TradeEvent) error
}

// PriceOracle resolves native-asset USD prices. 0 means unavailable.
type PriceOracle interface {
	PriceUSD(ctx context.Context, chain types.Chain) float64
}

// IngestResult says what happened to one transaction.
type IngestResult int

const (
	// IngestSkipped means the transaction was not a parseable swap or its
	// price was unavailable; no ledger row was written.
	IngestSkipped IngestResult = iota
	// IngestInserted means a new ledger row was created.
	IngestInserted
	// IngestDuplicate means the transaction was already in the ledger.
	IngestDuplicate
)

// Ingestor runs the canonical ingestion pipeline shared by the webhook, poll
// and backfill paths: parse, price, write, fan out.
type Ingestor struct {
	trades TradeStore
	queue  QueuePublisher
	hub    Broadcaster
	oracle PriceOracle
	logger *logging.Logger
}

// NewIngestor creates the ingestion pipeline. queue and hub may be nil when
// fan-out is not wanted (tooling, tests).
func NewIngestor(trades TradeStore, queue QueuePublisher, hub Broadcaster, oracle PriceOracle, logger *logging.Logger) *Ingestor {
	return &Ingestor{
		trades: trades,
		queue:  queue,
		hub:    hub,
		oracle: oracle,
		logger: logger.WithField("component", "ingestor"),
	}
}

// Ingest processes one enhanced transaction for a wallet. Skips are silent
// from the caller's perspective; failures writing the ledger are returned.
func (i *Ingestor) Ingest(ctx context.Context, tx types.EnhancedTransaction, wallet *models.AgentWallet) (IngestResult, error) {
	log := i.logger.WithFields(map[string]interface{}{
		"signature": tx.Signature,
		"agent_id":  wallet.AgentID,
		"chain":     wallet.Chain,
	})

	if tx.Signature == "" {
		// A row without a signature would absorb every later unsigned
		// transaction as a duplicate of itself.
		log.Warn("Transaction has no signature, skipping")
		return IngestSkipped, nil
	}

	swap, ok := parser.Parse(tx, wallet)
	if !ok {
		log.Debug("Transaction is not a parseable swap, skipping")
		return IngestSkipped, nil
	}

	price := i.oracle.PriceUSD(ctx, wallet.Chain)
	if price <= 0 {
		// USD value is load-bearing for ranking: an unvalued trade must not
		// enter the ledger.
		log.Warn("Native asset price unavailable, skipping trade")
		return IngestSkipped, nil
	}

	trade := swap.ToTrade(wallet, price, tx.Raw)
	inserted, err := i.trades.Insert(ctx, trade)
	if err != nil {
		return IngestSkipped, err
	}
	if !inserted {
		log.Debug("Trade already in ledger")
		return IngestDuplicate, nil
	}

	log.WithFields(map[string]interface{}{
		"trade_type":      trade.TradeType,
		"trade_value_usd": trade.TradeValueUSD,
		"is_buyback":      trade.IsBuyback,
	}).Info("Trade recorded")

	i.fanOut(trade)
	return IngestInserted, nil
}

// fanOut pushes the queue event and the websocket broadcast for a freshly
// inserted trade. Both are fire-and-forget: a failure is logged and never
// rolls back the ledger write.
func (i *Ingestor) fanOut(trade *models.Trade) {
	event := &ws.TradeEvent{
		Type:    "trade",
		AgentID: trade.AgentID,
		Chain:   trade.Chain,
		Data: ws.TradeEventData{
			TxSignature:   trade.TxSignature,
			Platform:      trade.Platform,
			TradeType:     trade.TradeType,
			IsBuyback:     trade.IsBuyback,
			TradeValueUSD: trade.TradeValueUSD,
		},
		Timestamp: time.Now().UTC(),
	}

	if i.queue != nil {
		queue := i.queue
		Spawn(i.logger, "queue_publish", func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return queue.Publish(ctx, event)
		})
	}
	if i.hub != nil {
		hub := i.hub
		Spawn(i.logger, "ws_broadcast", func(ctx context.Context) error {
			return hub.Broadcast(event)
		})
	}
}
