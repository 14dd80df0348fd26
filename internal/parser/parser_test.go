package parser

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

const (
	mintX = "Xm1nt1111111111111111111111111111111111111"
	mintY = "Ym1nt2222222222222222222222222222222222222"
)

func solanaWallet(tokenAddress string) *models.AgentWallet {
	w := &models.AgentWallet{
		ID:            "wallet-1",
		AgentID:       "agent-1",
		Chain:         types.ChainSolana,
		WalletAddress: "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK",
	}
	if tokenAddress != "" {
		w.TokenAddress = &tokenAddress
	}
	return w
}

func monadWallet(tokenAddress string) *models.AgentWallet {
	w := &models.AgentWallet{
		ID:            "wallet-2",
		AgentID:       "agent-1",
		Chain:         types.ChainMonad,
		WalletAddress: "0x742d35cc6634c0532925a3b844bc9e7595f0beb1",
	}
	if tokenAddress != "" {
		w.TokenAddress = &tokenAddress
	}
	return w
}

func TestParseSwapEventBuy(t *testing.T) {
	// Native input of 2 SOL against a single token output of 300000000 at
	// mint X classifies as a buy with the wrapped SOL mint on the in leg.
	wallet := solanaWallet("")
	tx := types.EnhancedTransaction{
		Signature: "sigA",
		Timestamp: 1700000000,
		Source:    "RAYDIUM",
		Events: types.Events{
			Swap: &types.SwapEvent{
				NativeInput: &types.NativeAmount{
					Account: wallet.WalletAddress,
					Amount:  "2000000000",
				},
				TokenOutputs: []types.SwapToken{{
					UserAccount:    wallet.WalletAddress,
					Mint:           mintX,
					RawTokenAmount: types.RawTokenAmount{TokenAmount: "300000000", Decimals: 6},
				}},
			},
		},
	}

	swap, ok := Parse(tx, wallet)
	require.True(t, ok)
	assert.Equal(t, types.TradeTypeBuy, swap.TradeType)
	assert.Equal(t, types.SolanaNativeMint, swap.TokenInAddress)
	assert.Equal(t, "2000000000", swap.TokenInAmount)
	assert.Equal(t, mintX, swap.TokenOutAddress)
	assert.Equal(t, "300000000", swap.TokenOutAmount)
	assert.Equal(t, 2.0, swap.BaseAssetAmount)
	assert.Equal(t, "raydium", swap.Platform)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), swap.BlockTime)
	assert.False(t, swap.IsBuyback)
}

func TestParseSwapEventSell(t *testing.T) {
	wallet := solanaWallet("")
	tx := types.EnhancedTransaction{
		Signature: "sigSell",
		Timestamp: 1700000100,
		Source:    "JUPITER",
		Events: types.Events{
			Swap: &types.SwapEvent{
				TokenInputs: []types.SwapToken{{
					UserAccount:    wallet.WalletAddress,
					Mint:           mintX,
					RawTokenAmount: types.RawTokenAmount{TokenAmount: "300000000", Decimals: 6},
				}},
				NativeOutput: &types.NativeAmount{
					Account: wallet.WalletAddress,
					Amount:  "1500000000",
				},
			},
		},
	}

	swap, ok := Parse(tx, wallet)
	require.True(t, ok)
	assert.Equal(t, types.TradeTypeSell, swap.TradeType)
	assert.Equal(t, mintX, swap.TokenInAddress)
	assert.Equal(t, types.SolanaNativeMint, swap.TokenOutAddress)
	assert.Equal(t, "1500000000", swap.TokenOutAmount)
	assert.Equal(t, 1.5, swap.BaseAssetAmount)
}

func TestParseSwapEventTokenToToken(t *testing.T) {
	wallet := solanaWallet("")
	tx := types.EnhancedTransaction{
		Signature: "sigTT",
		Timestamp: 1700000200,
		Source:    "JUPITER",
		Events: types.Events{
			Swap: &types.SwapEvent{
				TokenInputs: []types.SwapToken{{
					UserAccount:    wallet.WalletAddress,
					Mint:           mintX,
					RawTokenAmount: types.RawTokenAmount{TokenAmount: "100", Decimals: 6},
				}},
				TokenOutputs: []types.SwapToken{{
					UserAccount:    wallet.WalletAddress,
					Mint:           mintY,
					RawTokenAmount: types.RawTokenAmount{TokenAmount: "200", Decimals: 6},
				}},
			},
		},
	}

	swap, ok := Parse(tx, wallet)
	require.True(t, ok)
	assert.Equal(t, mintX, swap.TokenInAddress)
	assert.Equal(t, mintY, swap.TokenOutAddress)
	assert.Zero(t, swap.BaseAssetAmount)
}

func TestParseVendorRecordTakesPriority(t *testing.T) {
	// When both a vendor record and a swap event are present, the vendor
	// record wins.
	wallet := monadWallet("")
	tx := types.EnhancedTransaction{
		Signature: "0xdef",
		Timestamp: 1700000300,
		Source:    "UNKNOWN",
		SwapHistory: &types.VendorSwapRecord{
			Platform:        "uniswap-v3",
			TradeType:       "buy",
			TokenInAddress:  types.MonadNativeAddress,
			TokenInAmount:   "1500000000000000000",
			TokenOutAddress: "0x1234567890ABCDEF1234567890abcdef12345678",
			TokenOutAmount:  "250000000",
			BaseAssetAmount: "1500000000000000000",
		},
		Events: types.Events{
			Swap: &types.SwapEvent{
				NativeInput: &types.NativeAmount{Amount: "999"},
				TokenOutputs: []types.SwapToken{{
					Mint:           "0xffff",
					RawTokenAmount: types.RawTokenAmount{TokenAmount: "1"},
				}},
			},
		},
	}

	swap, ok := Parse(tx, wallet)
	require.True(t, ok)
	assert.Equal(t, "uniswap-v3", swap.Platform)
	assert.Equal(t, types.TradeTypeBuy, swap.TradeType)
	// EVM addresses come out lowercase.
	assert.Equal(t, "0x1234567890abcdef1234567890abcdef12345678", swap.TokenOutAddress)
	assert.Equal(t, 1.5, swap.BaseAssetAmount)
}

func TestParseBalanceDeltaFallback(t *testing.T) {
	wallet := solanaWallet("")

	tests := []struct {
		name        string
		nativeDelta int64
		tokenDelta  string
		wantType    types.TradeType
		wantBase    float64
	}{
		{"buy from deltas", -2000000000, "300000000", types.TradeTypeBuy, 2.0},
		{"sell from deltas", 1500000000, "-300000000", types.TradeTypeSell, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := types.EnhancedTransaction{
				Signature: "sigDelta",
				Timestamp: 1700000400,
				Source:    "RAYDIUM",
				AccountData: []types.AccountData{
					{
						Account:             wallet.WalletAddress,
						NativeBalanceChange: tt.nativeDelta,
					},
					{
						Account: "tokenAccount111",
						TokenBalanceChanges: []types.TokenBalanceChange{{
							UserAccount:    wallet.WalletAddress,
							Mint:           mintX,
							RawTokenAmount: types.RawTokenAmount{TokenAmount: tt.tokenDelta, Decimals: 6},
						}},
					},
				},
			}

			swap, ok := Parse(tx, wallet)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, swap.TradeType)
			assert.Equal(t, tt.wantBase, swap.BaseAssetAmount)
			assert.Equal(t, "300000000", map[types.TradeType]string{
				types.TradeTypeBuy:  swap.TokenOutAmount,
				types.TradeTypeSell: swap.TokenInAmount,
			}[tt.wantType])
		})
	}
}

func TestParseBalanceDeltaFeeOnlyNativeChange(t *testing.T) {
	// A fee-sized native delta with token deltas in both directions is a
	// token-to-token swap, not a sell.
	wallet := solanaWallet("")
	tx := types.EnhancedTransaction{
		Signature: "sigFees",
		Timestamp: 1700000500,
		AccountData: []types.AccountData{
			{
				Account:             wallet.WalletAddress,
				NativeBalanceChange: -5000,
			},
			{
				Account: "tokenAccount111",
				TokenBalanceChanges: []types.TokenBalanceChange{
					{
						UserAccount:    wallet.WalletAddress,
						Mint:           mintX,
						RawTokenAmount: types.RawTokenAmount{TokenAmount: "-100", Decimals: 6},
					},
					{
						UserAccount:    wallet.WalletAddress,
						Mint:           mintY,
						RawTokenAmount: types.RawTokenAmount{TokenAmount: "200", Decimals: 6},
					},
				},
			},
		},
	}

	swap, ok := Parse(tx, wallet)
	require.True(t, ok)
	assert.Equal(t, mintX, swap.TokenInAddress)
	assert.Equal(t, mintY, swap.TokenOutAddress)
	assert.Equal(t, "100", swap.TokenInAmount)
	assert.Zero(t, swap.BaseAssetAmount)
}

func TestParseBuybackClassification(t *testing.T) {
	buyOf := func(mint string) types.EnhancedTransaction {
		return types.EnhancedTransaction{
			Signature: "sig-" + mint[:4],
			Timestamp: 1700000600,
			Source:    "RAYDIUM",
			Events: types.Events{
				Swap: &types.SwapEvent{
					NativeInput: &types.NativeAmount{Amount: "1000000000"},
					TokenOutputs: []types.SwapToken{{
						Mint:           mint,
						RawTokenAmount: types.RawTokenAmount{TokenAmount: "500", Decimals: 6},
					}},
				},
			},
		}
	}

	wallet := solanaWallet(mintX)

	swap, ok := Parse(buyOf(mintX), wallet)
	require.True(t, ok)
	assert.True(t, swap.IsBuyback)

	swap, ok = Parse(buyOf(mintY), wallet)
	require.True(t, ok)
	assert.False(t, swap.IsBuyback)
}

func TestParseBuybackEVMCaseInsensitive(t *testing.T) {
	wallet := monadWallet("0xABCDABCDabcdabcdABCDABCDabcdabcdABCDABCD")
	tx := types.EnhancedTransaction{
		Signature: "0xbb",
		Timestamp: 1700000700,
		SwapHistory: &types.VendorSwapRecord{
			Platform:        "uniswap-v3",
			TradeType:       "buy",
			TokenInAddress:  types.MonadNativeAddress,
			TokenInAmount:   "1000000000000000000",
			TokenOutAddress: "0xabcdabcdabcdabcdabcdabcdabcdabcdabcdabcd",
			TokenOutAmount:  "42",
			BaseAssetAmount: "1000000000000000000",
		},
	}

	swap, ok := Parse(tx, wallet)
	require.True(t, ok)
	assert.True(t, swap.IsBuyback)
}

func TestParseRejections(t *testing.T) {
	wallet := solanaWallet("")

	tests := []struct {
		name string
		tx   types.EnhancedTransaction
	}{
		{"on-chain error", types.EnhancedTransaction{
			Signature:        "sigErr",
			TransactionError: &types.TxError{Error: "InstructionError"},
			Events: types.Events{Swap: &types.SwapEvent{
				NativeInput:  &types.NativeAmount{Amount: "1000000000"},
				TokenOutputs: []types.SwapToken{{Mint: mintX, RawTokenAmount: types.RawTokenAmount{TokenAmount: "1"}}},
			}},
		}},
		{"no swap shape", types.EnhancedTransaction{Signature: "sigNone", Type: "TRANSFER"}},
		{"swap event with no legs", types.EnhancedTransaction{
			Signature: "sigEmpty",
			Events:    types.Events{Swap: &types.SwapEvent{}},
		}},
		{"vendor record with unknown trade type", types.EnhancedTransaction{
			Signature: "sigVendor",
			SwapHistory: &types.VendorSwapRecord{
				TradeType:       "stake",
				TokenInAddress:  mintX,
				TokenOutAddress: mintY,
			},
		}},
		{"same token both legs", types.EnhancedTransaction{
			Signature: "sigSame",
			SwapHistory: &types.VendorSwapRecord{
				Platform:        "x",
				TradeType:       "buy",
				TokenInAddress:  mintX,
				TokenInAmount:   "1",
				TokenOutAddress: mintX,
				TokenOutAmount:  "2",
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			swap, ok := Parse(tt.tx, wallet)
			assert.False(t, ok)
			assert.Nil(t, swap)
		})
	}
}

func TestParseProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	wallet := solanaWallet(mintX)

	properties.Property("buy events always valuable and well-formed", prop.ForAll(
		func(lamports int64, outAmount int64) bool {
			tx := types.EnhancedTransaction{
				Signature: fmt.Sprintf("sig-%d-%d", lamports, outAmount),
				Timestamp: 1700000000,
				Source:    "RAYDIUM",
				Events: types.Events{
					Swap: &types.SwapEvent{
						NativeInput: &types.NativeAmount{
							Account: wallet.WalletAddress,
							Amount:  fmt.Sprintf("%d", lamports),
						},
						TokenOutputs: []types.SwapToken{{
							UserAccount:    wallet.WalletAddress,
							Mint:           mintY,
							RawTokenAmount: types.RawTokenAmount{TokenAmount: fmt.Sprintf("%d", outAmount), Decimals: 6},
						}},
					},
				},
			}

			swap, ok := Parse(tx, wallet)
			if !ok {
				return false
			}
			return swap.TradeType == types.TradeTypeBuy &&
				swap.TokenInAddress != swap.TokenOutAddress &&
				swap.BaseAssetAmount == float64(lamports)/1e9 &&
				!swap.IsBuyback
		},
		gen.Int64Range(1, 1_000_000_000_000),
		gen.Int64Range(1, 1_000_000_000_000),
	))

	properties.Property("parsing is deterministic", prop.ForAll(
		func(lamports int64) bool {
			tx := types.EnhancedTransaction{
				Signature: "sig-det",
				Timestamp: 1700000000,
				Events: types.Events{
					Swap: &types.SwapEvent{
						TokenInputs: []types.SwapToken{{
							UserAccount:    wallet.WalletAddress,
							Mint:           mintY,
							RawTokenAmount: types.RawTokenAmount{TokenAmount: "100", Decimals: 6},
						}},
						NativeOutput: &types.NativeAmount{
							Account: wallet.WalletAddress,
							Amount:  fmt.Sprintf("%d", lamports),
						},
					},
				},
			}

			first, ok1 := Parse(tx, wallet)
			second, ok2 := Parse(tx, wallet)
			return ok1 && ok2 && *first == *second
		},
		gen.Int64Range(1, 1_000_000_000_000),
	))

	properties.TestingRun(t)
}
