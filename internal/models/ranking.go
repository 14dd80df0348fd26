package models

import "time"

// PerformanceRanking is one agent's row in a derived ranking snapshot.
// All rows of one recompute share the same Generation and RankedAt; the
// current ranking is the generation the pointer table marks as current.
// Rows are fully recomputable from the trade ledger and never hand-edited.
type PerformanceRanking struct {
	ID                     string    `json:"id"`
	Generation             string    `json:"generation"`
	AgentID                string    `json:"agentId"`
	TotalPnlUSD            float64   `json:"totalPnlUsd"`
	WinRate                float64   `json:"winRate"` // percent, 0-100
	TotalTrades            int       `json:"totalTrades"`
	TotalVolumeUSD         float64   `json:"totalVolumeUsd"`
	TokenPriceChange24h    float64   `json:"tokenPriceChange24h"`
	BuybackTotalBaseAsset  float64   `json:"buybackTotalBaseAsset"` // native units
	BuybackTotalTokens     float64   `json:"buybackTotalTokens"`    // raw token base units
	Rank                   int       `json:"rank"`
	RankedAt               time.Time `json:"rankedAt"`
}

// RankingGeneration is the pointer record for one recompute run. Flipping
// Current from the previous generation to a fully written new one is what
// makes a snapshot visible to readers.
type RankingGeneration struct {
	Generation string    `json:"generation"`
	RankedAt   time.Time `json:"rankedAt"`
	AgentCount int       `json:"agentCount"`
	Current    bool      `json:"current"`
}
