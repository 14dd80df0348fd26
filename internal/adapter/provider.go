// Package adapter provides chain-specific indexing provider implementations
// behind a uniform capability interface.
package adapter

import (
	"context"
	"fmt"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// FetchMode selects the batching profile for enhanced-transaction fetches.
// Interactive calls use small batches with longer pauses to stay under
// provider rate limits; background calls use larger batches.
type FetchMode string

const (
	// FetchModeInteractive is for user-triggered calls (registration backfill)
	FetchModeInteractive FetchMode = "interactive"
	// FetchModeBackground is for scheduled/offline calls (poll, manual backfill)
	FetchModeBackground FetchMode = "background"
)

// SignatureOptions controls signature listing pagination
type SignatureOptions struct {
	Limit  int    // page size; provider default when zero
	Before string // exclusive cursor: a previously seen signature
}

// ChainProvider defines the capability set required from a chain's
// RPC/indexer access layer.
type ChainProvider interface {
	// Chain returns the chain this provider serves
	Chain() types.Chain

	// GetSignatures lists transaction signatures for an address,
	// most recent first
	GetSignatures(ctx context.Context, address string, opts SignatureOptions) ([]types.SignatureInfo, error)

	// GetEnhancedTransactions fetches enriched transaction envelopes for the
	// given signatures. Large sets are chunked; individual batch failures are
	// logged and skipped, so partial success returns only the transactions
	// that succeeded.
	GetEnhancedTransactions(ctx context.Context, signatures []string, mode FetchMode) ([]types.EnhancedTransaction, error)

	// RegisterWebhook registers the address for push delivery. Best-effort:
	// callers log failures and proceed.
	RegisterWebhook(ctx context.Context, address, secret string) error

	// ValidateAddress checks the address format for this chain without any
	// network call
	ValidateAddress(address string) bool
}

// Registry maps chains to their providers. One Registry value is constructed
// per process and passed explicitly to ingestion and backfill call sites.
type Registry struct {
	providers map[types.Chain]ChainProvider
}

// NewRegistry creates a registry over the given providers
func NewRegistry(providers ...ChainProvider) *Registry {
	m := make(map[types.Chain]ChainProvider, len(providers))
	for _, p := range providers {
		m[p.Chain()] = p
	}
	return &Registry{providers: m}
}

// Provider returns the provider for a chain
func (r *Registry) Provider(chain types.Chain) (ChainProvider, error) {
	p, ok := r.providers[chain]
	if !ok {
		return nil, fmt.Errorf("no provider registered for chain %s", chain)
	}
	return p, nil
}

// Chains returns the chains with a registered provider
func (r *Registry) Chains() []types.Chain {
	chains := make([]types.Chain, 0, len(r.providers))
	for c := range r.providers {
		chains = append(chains, c)
	}
	return chains
}
