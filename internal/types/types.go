// Package types provides common type definitions for the agent trade ledger system.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Chain represents supported blockchain networks
type Chain string

const (
	// ChainSolana represents the Solana mainnet
	ChainSolana Chain = "solana"
	// ChainMonad represents the Monad network (EVM)
	ChainMonad Chain = "monad"
)

// IsValid reports whether the chain is one of the supported networks
func (c Chain) IsValid() bool {
	return c == ChainSolana || c == ChainMonad
}

// IsEVM reports whether addresses on this chain use the EVM hex format
func (c Chain) IsEVM() bool {
	return c == ChainMonad
}

// NativeAssetAddress returns the canonical address used for the chain's
// native asset when it appears as a swap leg
func (c Chain) NativeAssetAddress() string {
	switch c {
	case ChainSolana:
		return SolanaNativeMint
	case ChainMonad:
		return MonadNativeAddress
	default:
		return ""
	}
}

// NativeDecimals returns the base-unit precision of the chain's native asset
func (c Chain) NativeDecimals() int {
	if c.IsEVM() {
		return 18
	}
	return 9
}

const (
	// SolanaNativeMint is the wrapped SOL mint address used to represent the
	// native leg of a Solana swap
	SolanaNativeMint = "So11111111111111111111111111111111111111112"
	// MonadNativeAddress is the conventional EVM sentinel address for the
	// native asset
	MonadNativeAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
)

// TradeType represents the direction of a swap from the wallet's perspective
type TradeType string

const (
	// TradeTypeBuy represents native asset in, token out
	TradeTypeBuy TradeType = "buy"
	// TradeTypeSell represents token in, native asset out
	TradeTypeSell TradeType = "sell"
)

// ServiceError represents a structured service-level error
type ServiceError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// SignatureInfo is one entry from a provider's signature listing,
// most recent first. Providers normalize their unix-second block times into
// time.Time before handing entries out.
type SignatureInfo struct {
	Signature string
	BlockTime time.Time
	Err       bool // true if the transaction failed on-chain
}

// EnhancedTransaction is the provider-enriched transaction envelope shared by
// the webhook and backfill paths. Raw retains the exact vendor payload for
// audit storage on the trade row.
type EnhancedTransaction struct {
	Signature        string             `json:"signature"`
	Timestamp        int64              `json:"timestamp"` // unix seconds
	FeePayer         string             `json:"feePayer"`
	Type             string             `json:"type"`   // provider classification, e.g. "SWAP"
	Source           string             `json:"source"` // originating DEX/router, e.g. "RAYDIUM"
	Logs             []string           `json:"logs,omitempty"`
	TransactionError *TxError           `json:"transactionError,omitempty"`
	SwapHistory      *VendorSwapRecord  `json:"swapHistory,omitempty"`
	Events           Events             `json:"events"`
	AccountData      []AccountData      `json:"accountData,omitempty"`
	TokenTransfers   []TokenTransfer    `json:"tokenTransfers,omitempty"`
	NativeTransfers  []NativeTransfer   `json:"nativeTransfers,omitempty"`
	Raw              json.RawMessage    `json:"-"`
}

// TxError represents an on-chain transaction error
type TxError struct {
	Error string `json:"error"`
}

// VendorSwapRecord is a platform's own pre-classified swap-history record
// embedded in the payload. When present it is the most reliable source and
// is used verbatim by the parser.
type VendorSwapRecord struct {
	Platform        string `json:"platform"`
	TradeType       string `json:"tradeType"` // buy | sell
	TokenInAddress  string `json:"tokenInAddress"`
	TokenInAmount   string `json:"tokenInAmount"` // raw base units
	TokenOutAddress string `json:"tokenOutAddress"`
	TokenOutAmount  string `json:"tokenOutAmount"`
	BaseAssetAmount string `json:"baseAssetAmount"` // raw native base units
}

// Events holds the structured event data attached by the indexing provider
type Events struct {
	Swap *SwapEvent `json:"swap,omitempty"`
}

// SwapEvent is the provider's decoded swap event: explicit native legs plus
// token input/output arrays
type SwapEvent struct {
	NativeInput  *NativeAmount `json:"nativeInput,omitempty"`
	NativeOutput *NativeAmount `json:"nativeOutput,omitempty"`
	TokenInputs  []SwapToken   `json:"tokenInputs,omitempty"`
	TokenOutputs []SwapToken   `json:"tokenOutputs,omitempty"`
}

// NativeAmount represents a native asset amount tied to an account
type NativeAmount struct {
	Account string `json:"account"`
	Amount  string `json:"amount"` // raw base units as string
}

// SwapToken represents one token leg of a swap event
type SwapToken struct {
	UserAccount    string         `json:"userAccount"`
	Mint           string         `json:"mint"`
	RawTokenAmount RawTokenAmount `json:"rawTokenAmount"`
}

// RawTokenAmount holds a raw token amount with its decimals
type RawTokenAmount struct {
	TokenAmount string `json:"tokenAmount"` // raw base units as string
	Decimals    int    `json:"decimals"`
}

// AccountData holds per-account balance deltas for one transaction, used by
// the parser's balance-delta fallback
type AccountData struct {
	Account             string               `json:"account"`
	NativeBalanceChange int64                `json:"nativeBalanceChange"` // raw base units, signed
	TokenBalanceChanges []TokenBalanceChange `json:"tokenBalanceChanges,omitempty"`
}

// TokenBalanceChange represents a token balance delta for one account
type TokenBalanceChange struct {
	UserAccount    string         `json:"userAccount"`
	Mint           string         `json:"mint"`
	RawTokenAmount RawTokenAmount `json:"rawTokenAmount"` // signed raw amount
}

// TokenTransfer represents a token transfer between accounts
type TokenTransfer struct {
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
	Mint            string  `json:"mint"`
	TokenAmount     float64 `json:"tokenAmount"`
}

// NativeTransfer represents a native asset transfer between accounts
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"` // raw base units
}
