package service

import (
	"context"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
)

// Poller periodically re-syncs a recent window of every registered wallet.
// It is the safety net behind webhook push: a missed delivery converges into
// the ledger on the next poll via the unique constraint.
type Poller struct {
	wallets   WalletStore
	backfill  *BackfillEngine
	interval  time.Duration
	window    time.Duration
	pageLimit int
	logger    *logging.Logger

	stop chan struct{}
	done chan struct{}
}

// NewPoller creates a poll loop over all registered wallets.
func NewPoller(wallets WalletStore, backfill *BackfillEngine, interval, window time.Duration, pageLimit int, logger *logging.Logger) *Poller {
	return &Poller{
		wallets:   wallets,
		backfill:  backfill,
		interval:  interval,
		window:    window,
		pageLimit: pageLimit,
		logger:    logger.WithField("component", "poller"),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the poll loop in its own goroutine.
func (p *Poller) Start() {
	go p.run()
}

// Stop signals the loop to exit and waits for the in-flight pass to finish.
func (p *Poller) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Poller) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.WithField("interval", p.interval.String()).Info("Poll loop started")
	for {
		select {
		case <-ticker.C:
			p.RunOnce(context.Background())
		case <-p.stop:
			p.logger.Info("Poll loop stopped")
			return
		}
	}
}

// RunOnce polls every registered wallet's recent window. Per-wallet failures
// are logged and skipped.
func (p *Poller) RunOnce(ctx context.Context) {
	wallets, err := p.wallets.List(ctx)
	if err != nil {
		p.logger.WithError(err).Error("Failed to list wallets for poll")
		return
	}

	since := time.Now().UTC().Add(-p.window)
	for _, wallet := range wallets {
		select {
		case <-p.stop:
			return
		default:
		}

		result, err := p.backfill.Backfill(ctx, wallet, BackfillOptions{
			SinceTime: since,
			Limit:     p.pageLimit,
		})
		if err != nil {
			p.logger.WithError(err).WithFields(map[string]interface{}{
				"agent_id": wallet.AgentID,
				"chain":    wallet.Chain,
			}).Warn("Poll backfill failed for wallet")
			continue
		}
		if result.Inserted > 0 {
			p.logger.WithFields(map[string]interface{}{
				"agent_id": wallet.AgentID,
				"chain":    wallet.Chain,
				"inserted": result.Inserted,
			}).Info("Poll recovered missed trades")
		}
	}
}
