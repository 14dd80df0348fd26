package models

import (
	"encoding/json"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// Trade is one canonical ledger entry derived from a raw swap event.
// Rows are append-only: created once by the ledger writer, never mutated or
// deleted. `(TxSignature, Chain)` is unique and is the sole mechanism
// preventing duplicate ingestion across the webhook, poll and backfill paths.
type Trade struct {
	ID                string          `json:"id"`
	AgentID           string          `json:"agentId"`
	WalletID          *string         `json:"walletId,omitempty"` // nullable for legacy rows
	Chain             types.Chain     `json:"chain"`
	TxSignature       string          `json:"txSignature"`
	BlockTime         time.Time       `json:"blockTime"`
	Platform          string          `json:"platform"`
	TradeType         types.TradeType `json:"tradeType"`
	TokenInAddress    string          `json:"tokenInAddress"`
	TokenInAmount     string          `json:"tokenInAmount"` // raw base units as string
	TokenOutAddress   string          `json:"tokenOutAddress"`
	TokenOutAmount    string          `json:"tokenOutAmount"`
	BaseAssetPriceUSD float64         `json:"baseAssetPriceUsd"`
	TradeValueUSD     float64         `json:"tradeValueUsd"`
	IsBuyback         bool            `json:"isBuyback"`
	RawData           json.RawMessage `json:"rawData,omitempty"` // opaque vendor payload for audit
	CreatedAt         time.Time       `json:"createdAt"`
}

// ParsedSwap is the parser's transient output. It lives only for the duration
// of one ingestion call and is never persisted directly.
type ParsedSwap struct {
	Signature       string
	BlockTime       time.Time
	Platform        string
	TradeType       types.TradeType
	TokenInAddress  string
	TokenInAmount   string
	TokenOutAddress string
	TokenOutAmount  string
	BaseAssetAmount float64 // native units (decimal-adjusted), zero for token-to-token swaps
	IsBuyback       bool
}

// ToTrade builds the canonical ledger row for a parsed swap valued at the
// given native-asset USD price.
func (s *ParsedSwap) ToTrade(wallet *AgentWallet, priceUSD float64, raw json.RawMessage) *Trade {
	walletID := wallet.ID
	return &Trade{
		AgentID:           wallet.AgentID,
		WalletID:          &walletID,
		Chain:             wallet.Chain,
		TxSignature:       s.Signature,
		BlockTime:         s.BlockTime,
		Platform:          s.Platform,
		TradeType:         s.TradeType,
		TokenInAddress:    s.TokenInAddress,
		TokenInAmount:     s.TokenInAmount,
		TokenOutAddress:   s.TokenOutAddress,
		TokenOutAmount:    s.TokenOutAmount,
		BaseAssetPriceUSD: priceUSD,
		TradeValueUSD:     s.BaseAssetAmount * priceUSD,
		IsBuyback:         s.IsBuyback,
		RawData:           raw,
	}
}
