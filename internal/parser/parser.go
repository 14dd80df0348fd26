// Package parser normalizes vendor-shaped transaction payloads into canonical
// parsed swaps. Parsing is pure: no network, no storage.
package parser

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// minNativeDelta is the smallest native balance change treated as a swap leg
// rather than transaction fees, in native units.
const minNativeDelta = 0.001

// variantParser attempts to extract a swap from one payload shape. It returns
// (nil, false) when the shape does not match.
type variantParser func(tx types.EnhancedTransaction, wallet *models.AgentWallet) (*models.ParsedSwap, bool)

// variants are tried in priority order; the first match wins. Vendor
// pre-classified records are the most reliable, balance-delta reconciliation
// is the fallback of last resort.
var variants = []variantParser{
	parseVendorRecord,
	parseSwapEvent,
	parseBalanceDeltas,
}

// Parse converts a raw enhanced transaction into a canonical ParsedSwap for
// the given wallet. It returns (nil, false) when the transaction errored
// on-chain or no coherent swap pattern is found; callers skip silently.
func Parse(tx types.EnhancedTransaction, wallet *models.AgentWallet) (*models.ParsedSwap, bool) {
	if tx.TransactionError != nil {
		return nil, false
	}
	for _, v := range variants {
		if swap, ok := v(tx, wallet); ok {
			if swap.TokenInAddress == swap.TokenOutAddress {
				return nil, false
			}
			swap.IsBuyback = wallet.MatchesCreatorToken(swap.TokenOutAddress)
			return swap, true
		}
	}
	return nil, false
}

// parseVendorRecord uses a platform's own pre-classified swap-history record
// embedded in the payload.
func parseVendorRecord(tx types.EnhancedTransaction, wallet *models.AgentWallet) (*models.ParsedSwap, bool) {
	rec := tx.SwapHistory
	if rec == nil || rec.TokenInAddress == "" || rec.TokenOutAddress == "" {
		return nil, false
	}

	tradeType := types.TradeType(strings.ToLower(rec.TradeType))
	if tradeType != types.TradeTypeBuy && tradeType != types.TradeTypeSell {
		return nil, false
	}

	swap := &models.ParsedSwap{
		Signature:       tx.Signature,
		BlockTime:       time.Unix(tx.Timestamp, 0).UTC(),
		Platform:        rec.Platform,
		TradeType:       tradeType,
		TokenInAddress:  normalizeAddress(rec.TokenInAddress, wallet.Chain),
		TokenInAmount:   rec.TokenInAmount,
		TokenOutAddress: normalizeAddress(rec.TokenOutAddress, wallet.Chain),
		TokenOutAmount:  rec.TokenOutAmount,
		BaseAssetAmount: rawToNative(rec.BaseAssetAmount, wallet.Chain.NativeDecimals()),
	}
	return swap, true
}

// parseSwapEvent reads the provider's decoded swap event: explicit native
// input/output legs plus token input/output arrays.
func parseSwapEvent(tx types.EnhancedTransaction, wallet *models.AgentWallet) (*models.ParsedSwap, bool) {
	ev := tx.Events.Swap
	if ev == nil {
		return nil, false
	}

	nativeMint := wallet.Chain.NativeAssetAddress()
	decimals := wallet.Chain.NativeDecimals()
	tokenIn := firstTokenLeg(ev.TokenInputs, wallet.WalletAddress)
	tokenOut := firstTokenLeg(ev.TokenOutputs, wallet.WalletAddress)

	swap := &models.ParsedSwap{
		Signature: tx.Signature,
		BlockTime: time.Unix(tx.Timestamp, 0).UTC(),
		Platform:  platformName(tx.Source),
	}

	switch {
	case ev.NativeInput != nil && tokenOut != nil:
		// Native in, token out: a buy.
		swap.TradeType = types.TradeTypeBuy
		swap.TokenInAddress = nativeMint
		swap.TokenInAmount = ev.NativeInput.Amount
		swap.TokenOutAddress = tokenOut.Mint
		swap.TokenOutAmount = tokenOut.RawTokenAmount.TokenAmount
		swap.BaseAssetAmount = rawToNative(ev.NativeInput.Amount, decimals)
	case tokenIn != nil && ev.NativeOutput != nil:
		// Token in, native out: a sell.
		swap.TradeType = types.TradeTypeSell
		swap.TokenInAddress = tokenIn.Mint
		swap.TokenInAmount = tokenIn.RawTokenAmount.TokenAmount
		swap.TokenOutAddress = nativeMint
		swap.TokenOutAmount = ev.NativeOutput.Amount
		swap.BaseAssetAmount = rawToNative(ev.NativeOutput.Amount, decimals)
	case tokenIn != nil && tokenOut != nil:
		// Token-to-token: no native leg, so no base asset amount.
		swap.TradeType = types.TradeTypeBuy
		swap.TokenInAddress = tokenIn.Mint
		swap.TokenInAmount = tokenIn.RawTokenAmount.TokenAmount
		swap.TokenOutAddress = tokenOut.Mint
		swap.TokenOutAmount = tokenOut.RawTokenAmount.TokenAmount
	default:
		return nil, false
	}
	return swap, true
}

// parseBalanceDeltas reconciles the wallet's native delta against its token
// balance deltas when no structured swap data is present.
func parseBalanceDeltas(tx types.EnhancedTransaction, wallet *models.AgentWallet) (*models.ParsedSwap, bool) {
	if len(tx.AccountData) == 0 {
		return nil, false
	}

	decimals := wallet.Chain.NativeDecimals()
	nativeMint := wallet.Chain.NativeAssetAddress()

	var nativeDelta int64
	gained, lost := walletTokenDeltas(tx.AccountData, wallet.WalletAddress)
	for _, acc := range tx.AccountData {
		if acc.Account == wallet.WalletAddress {
			nativeDelta += acc.NativeBalanceChange
		}
	}
	nativeUnits := float64(nativeDelta) / math.Pow10(decimals)

	swap := &models.ParsedSwap{
		Signature: tx.Signature,
		BlockTime: time.Unix(tx.Timestamp, 0).UTC(),
		Platform:  platformName(tx.Source),
	}

	switch {
	case nativeUnits < -minNativeDelta && gained != nil:
		swap.TradeType = types.TradeTypeBuy
		swap.TokenInAddress = nativeMint
		swap.TokenInAmount = strconv.FormatInt(-nativeDelta, 10)
		swap.TokenOutAddress = gained.Mint
		swap.TokenOutAmount = absAmount(gained.RawTokenAmount.TokenAmount)
		swap.BaseAssetAmount = -nativeUnits
	case nativeUnits > minNativeDelta && lost != nil:
		swap.TradeType = types.TradeTypeSell
		swap.TokenInAddress = lost.Mint
		swap.TokenInAmount = absAmount(lost.RawTokenAmount.TokenAmount)
		swap.TokenOutAddress = nativeMint
		swap.TokenOutAmount = strconv.FormatInt(nativeDelta, 10)
		swap.BaseAssetAmount = nativeUnits
	case gained != nil && lost != nil:
		// Token-to-token, native change is fees only.
		swap.TradeType = types.TradeTypeBuy
		swap.TokenInAddress = lost.Mint
		swap.TokenInAmount = absAmount(lost.RawTokenAmount.TokenAmount)
		swap.TokenOutAddress = gained.Mint
		swap.TokenOutAmount = absAmount(gained.RawTokenAmount.TokenAmount)
	default:
		return nil, false
	}
	return swap, true
}

// walletTokenDeltas scans all account records for token balance changes owned
// by the wallet, returning the largest gained and largest lost legs.
func walletTokenDeltas(accounts []types.AccountData, walletAddress string) (gained, lost *types.TokenBalanceChange) {
	var gainedAmt, lostAmt float64
	for i := range accounts {
		for j := range accounts[i].TokenBalanceChanges {
			change := &accounts[i].TokenBalanceChanges[j]
			if change.UserAccount != walletAddress {
				continue
			}
			amt, err := strconv.ParseFloat(change.RawTokenAmount.TokenAmount, 64)
			if err != nil || amt == 0 {
				continue
			}
			if amt > 0 && amt > gainedAmt {
				gained, gainedAmt = change, amt
			}
			if amt < 0 && -amt > lostAmt {
				lost, lostAmt = change, -amt
			}
		}
	}
	return gained, lost
}

// firstTokenLeg returns the wallet's leg from a token input/output list,
// falling back to the first leg when none names the wallet.
func firstTokenLeg(legs []types.SwapToken, walletAddress string) *types.SwapToken {
	if len(legs) == 0 {
		return nil
	}
	for i := range legs {
		if legs[i].UserAccount == walletAddress {
			return &legs[i]
		}
	}
	return &legs[0]
}

// rawToNative converts a raw base-unit integer string into native units.
// Unparseable amounts yield 0, which downstream treats as unvaluable.
func rawToNative(raw string, decimals int) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v / math.Pow10(decimals)
}

func absAmount(raw string) string {
	return strings.TrimPrefix(raw, "-")
}

func platformName(source string) string {
	if source == "" {
		return "unknown"
	}
	return strings.ToLower(source)
}

func normalizeAddress(address string, chain types.Chain) string {
	if chain.IsEVM() {
		return strings.ToLower(address)
	}
	return address
}
