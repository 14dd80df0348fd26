// Package pricing resolves native-asset USD prices with multi-source
// fallback. A price of 0 is the explicit "unavailable" sentinel: callers must
// skip USD valuation entirely rather than record a zero or stale value.
package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// Source is one price provider tried by the oracle.
type Source interface {
	Name() string
	NativePriceUSD(ctx context.Context, chain types.Chain) (float64, error)
}

type cacheEntry struct {
	price     float64
	fetchedAt time.Time
}

// Oracle tries an ordered list of sources and returns the first positive
// price. Results are cached briefly so a webhook batch does not hammer the
// upstream APIs.
type Oracle struct {
	sources []Source
	ttl     time.Duration
	logger  *logging.Logger

	mu    sync.Mutex
	cache map[types.Chain]cacheEntry
}

// NewOracle creates a price oracle over the given sources, tried in order.
func NewOracle(sources []Source, cacheTTL time.Duration, logger *logging.Logger) *Oracle {
	return &Oracle{
		sources: sources,
		ttl:     cacheTTL,
		logger:  logger.WithField("component", "price_oracle"),
		cache:   make(map[types.Chain]cacheEntry),
	}
}

// PriceUSD returns the chain's native asset price in USD, or 0 when every
// source fails. Only positive prices are cached.
func (o *Oracle) PriceUSD(ctx context.Context, chain types.Chain) float64 {
	o.mu.Lock()
	if entry, ok := o.cache[chain]; ok && time.Since(entry.fetchedAt) < o.ttl {
		o.mu.Unlock()
		return entry.price
	}
	o.mu.Unlock()

	for _, src := range o.sources {
		price, err := src.NativePriceUSD(ctx, chain)
		if err != nil {
			o.logger.WithError(err).WithFields(map[string]interface{}{
				"source": src.Name(),
				"chain":  chain,
			}).Warn("Price source failed")
			continue
		}
		if price <= 0 {
			continue
		}

		o.mu.Lock()
		o.cache[chain] = cacheEntry{price: price, fetchedAt: time.Now()}
		o.mu.Unlock()
		return price
	}

	o.logger.WithField("chain", chain).Warn("All price sources failed, price unavailable")
	return 0
}
