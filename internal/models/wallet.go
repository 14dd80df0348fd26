package models

import (
	"strings"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// AgentWallet is one agent's trading wallet on a single chain. Created at
// registration and immutable afterwards, except for the creator token which
// may be set once.
type AgentWallet struct {
	ID            string      `json:"id"`
	AgentID       string      `json:"agentId"`
	Chain         types.Chain `json:"chain"`
	WalletAddress string      `json:"walletAddress"`
	TokenAddress  *string     `json:"tokenAddress,omitempty"` // the agent's creator token on this chain
	CreatedAt     time.Time   `json:"createdAt"`
}

// CreatorToken returns the registered creator token address, or "" when none
// has been set.
func (w *AgentWallet) CreatorToken() string {
	if w.TokenAddress == nil {
		return ""
	}
	return *w.TokenAddress
}

// MatchesCreatorToken reports whether the given token address is this wallet's
// creator token. EVM addresses compare case-insensitively; Solana addresses
// compare exactly (base58 is case-sensitive).
func (w *AgentWallet) MatchesCreatorToken(tokenAddress string) bool {
	creator := w.CreatorToken()
	if creator == "" || tokenAddress == "" {
		return false
	}
	if w.Chain.IsEVM() {
		return strings.EqualFold(creator, tokenAddress)
	}
	return creator == tokenAddress
}
