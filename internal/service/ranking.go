package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// RankingTradeStore is the ledger surface the ranking engine reads.
type RankingTradeStore interface {
	ListAgentIDs(ctx context.Context) ([]string, error)
	ListByAgent(ctx context.Context, agentID string) ([]*models.Trade, error)
}

// RankingStore persists ranking snapshots.
type RankingStore interface {
	WriteSnapshot(ctx context.Context, rankings []*models.PerformanceRanking) error
	PruneOrphans(ctx context.Context, retention time.Duration) (int64, error)
}

// TokenChangeSource resolves a token's 24h price change. Best-effort: the
// ranking tolerates failures.
type TokenChangeSource interface {
	TokenPriceChange24h(ctx context.Context, tokenAddress string) (float64, error)
}

// RankingEngine periodically recomputes the agent performance snapshot from
// the trade ledger. The computation is a pure function of the ledger:
// recomputing against an unchanged ledger yields identical numbers.
type RankingEngine struct {
	trades      RankingTradeStore
	rankings    RankingStore
	wallets     WalletStore
	tokenChange TokenChangeSource
	retention   time.Duration
	logger      *logging.Logger
}

// NewRankingEngine creates a ranking engine. tokenChange may be nil, in
// which case tokenPriceChange24h is always 0.
func NewRankingEngine(trades RankingTradeStore, rankings RankingStore, wallets WalletStore, tokenChange TokenChangeSource, orphanRetention time.Duration, logger *logging.Logger) *RankingEngine {
	return &RankingEngine{
		trades:      trades,
		rankings:    rankings,
		wallets:     wallets,
		tokenChange: tokenChange,
		retention:   orphanRetention,
		logger:      logger.WithField("component", "ranking"),
	}
}

// position accumulates the buy and sell side of one token for one agent.
type position struct {
	boughtUSD float64
	soldUSD   float64
	buys      int
	sells     int
}

func (p *position) closed() bool {
	return p.buys > 0 && p.sells > 0
}

func (p *position) pnl() float64 {
	return p.soldUSD - p.boughtUSD
}

// AgentPerformance is the per-agent aggregate before ranking.
type AgentPerformance struct {
	AgentID               string
	TotalPnlUSD           float64
	WinRate               float64 // percent, 0-100
	TotalTrades           int
	TotalVolumeUSD        float64
	BuybackTotalBaseAsset float64
	BuybackTotalTokens    float64
}

// ComputePerformance derives one agent's aggregate from their trades.
// Realized P&L only: a token position contributes once it has at least one
// buy and one sell, open positions contribute zero.
func ComputePerformance(agentID string, trades []*models.Trade) AgentPerformance {
	perf := AgentPerformance{AgentID: agentID, TotalTrades: len(trades)}
	positions := make(map[string]*position)

	for _, trade := range trades {
		perf.TotalVolumeUSD += trade.TradeValueUSD

		if trade.IsBuyback {
			if trade.BaseAssetPriceUSD > 0 {
				perf.BuybackTotalBaseAsset += trade.TradeValueUSD / trade.BaseAssetPriceUSD
			}
			if tokens, err := strconv.ParseFloat(trade.TokenOutAmount, 64); err == nil {
				perf.BuybackTotalTokens += tokens
			}
			continue
		}

		token := positionToken(trade)
		if token == "" {
			continue
		}
		pos, ok := positions[token]
		if !ok {
			pos = &position{}
			positions[token] = pos
		}
		switch trade.TradeType {
		case types.TradeTypeBuy:
			pos.boughtUSD += trade.TradeValueUSD
			pos.buys++
		case types.TradeTypeSell:
			pos.soldUSD += trade.TradeValueUSD
			pos.sells++
		}
	}

	closed, won := 0, 0
	for _, pos := range positions {
		if !pos.closed() {
			continue
		}
		closed++
		perf.TotalPnlUSD += pos.pnl()
		if pos.pnl() > 0 {
			won++
		}
	}
	if closed > 0 {
		perf.WinRate = float64(won) / float64(closed) * 100
	}
	return perf
}

// positionToken returns the non-native token a trade takes a position in.
func positionToken(trade *models.Trade) string {
	native := trade.Chain.NativeAssetAddress()
	if trade.TradeType == types.TradeTypeBuy {
		if trade.TokenOutAddress != native {
			return trade.TokenOutAddress
		}
		return ""
	}
	if trade.TokenInAddress != native {
		return trade.TokenInAddress
	}
	return ""
}

// Recompute reads the full ledger and writes a fresh ranking generation.
func (e *RankingEngine) Recompute(ctx context.Context) error {
	start := time.Now()

	agentIDs, err := e.trades.ListAgentIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list agents: %w", err)
	}
	if len(agentIDs) == 0 {
		e.logger.Debug("No agents in ledger, skipping recompute")
		return nil
	}

	performances := make([]AgentPerformance, 0, len(agentIDs))
	for _, agentID := range agentIDs {
		trades, err := e.trades.ListByAgent(ctx, agentID)
		if err != nil {
			return fmt.Errorf("failed to list trades for agent %s: %w", agentID, err)
		}
		performances = append(performances, ComputePerformance(agentID, trades))
	}

	// Rank descending by realized P&L; agent id breaks ties so re-runs are
	// stable.
	sort.Slice(performances, func(i, j int) bool {
		if performances[i].TotalPnlUSD != performances[j].TotalPnlUSD {
			return performances[i].TotalPnlUSD > performances[j].TotalPnlUSD
		}
		return performances[i].AgentID < performances[j].AgentID
	})

	tokens := e.creatorTokens(ctx)
	generation := uuid.New().String()
	rankedAt := time.Now().UTC()
	rankings := make([]*models.PerformanceRanking, 0, len(performances))
	for i, perf := range performances {
		rankings = append(rankings, &models.PerformanceRanking{
			Generation:            generation,
			AgentID:               perf.AgentID,
			TotalPnlUSD:           perf.TotalPnlUSD,
			WinRate:               perf.WinRate,
			TotalTrades:           perf.TotalTrades,
			TotalVolumeUSD:        perf.TotalVolumeUSD,
			TokenPriceChange24h:   e.tokenChangeFor(ctx, tokens[perf.AgentID]),
			BuybackTotalBaseAsset: perf.BuybackTotalBaseAsset,
			BuybackTotalTokens:    perf.BuybackTotalTokens,
			Rank:                  i + 1,
			RankedAt:              rankedAt,
		})
	}

	if err := e.rankings.WriteSnapshot(ctx, rankings); err != nil {
		return fmt.Errorf("failed to write ranking snapshot: %w", err)
	}

	if pruned, err := e.rankings.PruneOrphans(ctx, e.retention); err != nil {
		e.logger.WithError(err).Warn("Failed to prune orphaned generations")
	} else if pruned > 0 {
		e.logger.WithField("rows", pruned).Info("Pruned orphaned ranking generations")
	}

	e.logger.WithFields(map[string]interface{}{
		"generation": generation,
		"agents":     len(rankings),
		"duration":   time.Since(start).String(),
	}).Info("Ranking recomputed")
	return nil
}

// creatorTokens maps agent ids to their registered creator token, first
// wallet with a token wins.
func (e *RankingEngine) creatorTokens(ctx context.Context) map[string]string {
	tokens := make(map[string]string)
	if e.wallets == nil {
		return tokens
	}
	wallets, err := e.wallets.List(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("Failed to list wallets for token lookup")
		return tokens
	}
	for _, wallet := range wallets {
		if _, seen := tokens[wallet.AgentID]; !seen && wallet.CreatorToken() != "" {
			tokens[wallet.AgentID] = wallet.CreatorToken()
		}
	}
	return tokens
}

// tokenChangeFor resolves the 24h price change of a creator token. 0 when
// the agent has no token or the lookup fails.
func (e *RankingEngine) tokenChangeFor(ctx context.Context, tokenAddress string) float64 {
	if e.tokenChange == nil || tokenAddress == "" {
		return 0
	}
	change, err := e.tokenChange.TokenPriceChange24h(ctx, tokenAddress)
	if err != nil {
		e.logger.WithError(err).WithField("token", tokenAddress).Debug("Token price change lookup failed")
		return 0
	}
	return change
}
