package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

const (
	tokenA = "TokenA111111111111111111111111111111111111"
	tokenB = "TokenB222222222222222222222222222222222222"
)

type fakeRankingLedger struct {
	trades map[string][]*models.Trade
}

func (l *fakeRankingLedger) ListAgentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id := range l.trades {
		ids = append(ids, id)
	}
	return ids, nil
}

func (l *fakeRankingLedger) ListByAgent(ctx context.Context, agentID string) ([]*models.Trade, error) {
	return l.trades[agentID], nil
}

type fakeRankingStore struct {
	mu        sync.Mutex
	snapshots [][]*models.PerformanceRanking
	pruned    int
}

func (s *fakeRankingStore) WriteSnapshot(ctx context.Context, rankings []*models.PerformanceRanking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, rankings)
	return nil
}

func (s *fakeRankingStore) PruneOrphans(ctx context.Context, retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruned++
	return 0, nil
}

func (s *fakeRankingStore) latest() []*models.PerformanceRanking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return nil
	}
	return s.snapshots[len(s.snapshots)-1]
}

type fakeTokenChange struct {
	changes map[string]float64
}

func (f *fakeTokenChange) TokenPriceChange24h(ctx context.Context, tokenAddress string) (float64, error) {
	return f.changes[tokenAddress], nil
}

func TestComputePerformanceClosedPositions(t *testing.T) {
	// Buy token A for $10, sell it for $15, buy token B for $5 and hold:
	// realized P&L is 5, one of one closed positions won, volume is 30.
	trades := []*models.Trade{
		ledgerTrade("agent-1", "sig1", types.TradeTypeBuy, tokenA, 10, false),
		ledgerTrade("agent-1", "sig2", types.TradeTypeSell, tokenA, 15, false),
		ledgerTrade("agent-1", "sig3", types.TradeTypeBuy, tokenB, 5, false),
	}

	perf := ComputePerformance("agent-1", trades)
	assert.Equal(t, 5.0, perf.TotalPnlUSD)
	assert.Equal(t, 100.0, perf.WinRate)
	assert.Equal(t, 30.0, perf.TotalVolumeUSD)
	assert.Equal(t, 3, perf.TotalTrades)
}

func TestComputePerformanceLosingPosition(t *testing.T) {
	trades := []*models.Trade{
		ledgerTrade("agent-1", "sig1", types.TradeTypeBuy, tokenA, 20, false),
		ledgerTrade("agent-1", "sig2", types.TradeTypeSell, tokenA, 12, false),
		ledgerTrade("agent-1", "sig3", types.TradeTypeBuy, tokenB, 10, false),
		ledgerTrade("agent-1", "sig4", types.TradeTypeSell, tokenB, 25, false),
	}

	perf := ComputePerformance("agent-1", trades)
	assert.Equal(t, 7.0, perf.TotalPnlUSD) // -8 on A, +15 on B
	assert.Equal(t, 50.0, perf.WinRate)
}

func TestComputePerformanceNoClosedPositions(t *testing.T) {
	trades := []*models.Trade{
		ledgerTrade("agent-1", "sig1", types.TradeTypeBuy, tokenA, 10, false),
		ledgerTrade("agent-1", "sig2", types.TradeTypeBuy, tokenB, 20, false),
	}

	perf := ComputePerformance("agent-1", trades)
	assert.Zero(t, perf.TotalPnlUSD)
	assert.Zero(t, perf.WinRate)
	assert.Equal(t, 30.0, perf.TotalVolumeUSD)
}

func TestComputePerformanceBuybacks(t *testing.T) {
	// Buybacks count toward volume and the buyback sums but never toward
	// position P&L.
	trades := []*models.Trade{
		ledgerTrade("agent-1", "sig1", types.TradeTypeBuy, tokenA, 10, false),
		ledgerTrade("agent-1", "sig2", types.TradeTypeSell, tokenA, 15, false),
		ledgerTrade("agent-1", "sig3", types.TradeTypeBuy, tokenB, 200, true),
	}

	perf := ComputePerformance("agent-1", trades)
	assert.Equal(t, 5.0, perf.TotalPnlUSD)
	assert.Equal(t, 225.0, perf.TotalVolumeUSD)
	assert.Equal(t, 2.0, perf.BuybackTotalBaseAsset) // $200 at $100 per native unit
	assert.Equal(t, 500000000.0, perf.BuybackTotalTokens)
}

func TestComputePerformanceDeterministic(t *testing.T) {
	trades := []*models.Trade{
		ledgerTrade("agent-1", "sig1", types.TradeTypeBuy, tokenA, 10, false),
		ledgerTrade("agent-1", "sig2", types.TradeTypeSell, tokenA, 15, false),
		ledgerTrade("agent-1", "sig3", types.TradeTypeBuy, tokenB, 5, true),
	}

	first := ComputePerformance("agent-1", trades)
	second := ComputePerformance("agent-1", trades)
	assert.Equal(t, first, second)
}

func TestRankingEngineRecompute(t *testing.T) {
	ledger := &fakeRankingLedger{trades: map[string][]*models.Trade{
		"agent-1": {
			ledgerTrade("agent-1", "sig1", types.TradeTypeBuy, tokenA, 10, false),
			ledgerTrade("agent-1", "sig2", types.TradeTypeSell, tokenA, 15, false),
		},
		"agent-2": {
			ledgerTrade("agent-2", "sig3", types.TradeTypeBuy, tokenA, 10, false),
			ledgerTrade("agent-2", "sig4", types.TradeTypeSell, tokenA, 40, false),
		},
		"agent-3": {
			ledgerTrade("agent-3", "sig5", types.TradeTypeBuy, tokenA, 50, false),
			ledgerTrade("agent-3", "sig6", types.TradeTypeSell, tokenA, 20, false),
		},
	}}
	store := &fakeRankingStore{}

	tokenX := tokenA
	wallets := &fakeWalletStore{wallets: []*models.AgentWallet{{
		ID:            "wallet-1",
		AgentID:       "agent-1",
		Chain:         types.ChainSolana,
		WalletAddress: "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK",
		TokenAddress:  &tokenX,
	}}}
	changes := &fakeTokenChange{changes: map[string]float64{tokenA: 12.5}}

	engine := NewRankingEngine(ledger, store, wallets, changes, 24*time.Hour, testLogger())
	require.NoError(t, engine.Recompute(context.Background()))

	rankings := store.latest()
	require.Len(t, rankings, 3)

	// Descending by realized P&L: agent-2 (+30), agent-1 (+5), agent-3 (-30).
	assert.Equal(t, "agent-2", rankings[0].AgentID)
	assert.Equal(t, 1, rankings[0].Rank)
	assert.Equal(t, "agent-1", rankings[1].AgentID)
	assert.Equal(t, "agent-3", rankings[2].AgentID)
	assert.Equal(t, 3, rankings[2].Rank)

	// One shared generation and rankedAt across the snapshot.
	for _, r := range rankings[1:] {
		assert.Equal(t, rankings[0].Generation, r.Generation)
		assert.Equal(t, rankings[0].RankedAt, r.RankedAt)
	}

	assert.Equal(t, 12.5, rankings[1].TokenPriceChange24h)
	assert.Zero(t, rankings[0].TokenPriceChange24h)
	assert.Equal(t, 1, store.pruned)
}

func TestRankingEngineEmptyLedger(t *testing.T) {
	engine := NewRankingEngine(&fakeRankingLedger{trades: map[string][]*models.Trade{}}, &fakeRankingStore{}, nil, nil, time.Hour, testLogger())
	require.NoError(t, engine.Recompute(context.Background()))
}
