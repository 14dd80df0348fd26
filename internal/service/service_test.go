package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/adapter"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/ws"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelError, logging.FormatText)
}

// fakeTradeStore is an in-memory ledger with the same (signature, chain)
// idempotency as the real repository.
type fakeTradeStore struct {
	mu     sync.Mutex
	trades map[string]*models.Trade
	err    error
}

func newFakeTradeStore() *fakeTradeStore {
	return &fakeTradeStore{trades: make(map[string]*models.Trade)}
}

func tradeKey(signature string, chain types.Chain) string {
	return signature + "|" + string(chain)
}

func (s *fakeTradeStore) Insert(ctx context.Context, trade *models.Trade) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	key := tradeKey(trade.TxSignature, trade.Chain)
	if _, ok := s.trades[key]; ok {
		return false, nil
	}
	s.trades[key] = trade
	return true, nil
}

func (s *fakeTradeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

func (s *fakeTradeStore) get(signature string, chain types.Chain) *models.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trades[tradeKey(signature, chain)]
}

type fakeWalletStore struct {
	mu      sync.Mutex
	wallets []*models.AgentWallet
}

func (s *fakeWalletStore) GetByAddress(ctx context.Context, address string, chain types.Chain) (*models.AgentWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wallets {
		if w.WalletAddress == address && w.Chain == chain {
			return w, nil
		}
	}
	return nil, nil
}

func (s *fakeWalletStore) List(ctx context.Context) ([]*models.AgentWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.AgentWallet(nil), s.wallets...), nil
}

func (s *fakeWalletStore) Create(ctx context.Context, wallet *models.AgentWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wallet.ID == "" {
		wallet.ID = fmt.Sprintf("wallet-%d", len(s.wallets)+1)
	}
	s.wallets = append(s.wallets, wallet)
	return nil
}

func (s *fakeWalletStore) SetTokenAddress(ctx context.Context, walletID, tokenAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wallets {
		if w.ID != walletID {
			continue
		}
		if w.TokenAddress != nil {
			return &types.ServiceError{Code: "TOKEN_ALREADY_SET", Message: "already set"}
		}
		token := tokenAddress
		w.TokenAddress = &token
		return nil
	}
	return &types.ServiceError{Code: "NOT_FOUND", Message: "no such wallet"}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *fakePublisher) Publish(ctx context.Context, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []*ws.TradeEvent
}

func (b *fakeBroadcaster) Broadcast(event *ws.TradeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func (b *fakeBroadcaster) last() *ws.TradeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return nil
	}
	return b.events[len(b.events)-1]
}

type fakeOracle struct {
	price float64
}

func (o *fakeOracle) PriceUSD(ctx context.Context, chain types.Chain) float64 {
	return o.price
}

// fakeProvider serves scripted signature pages and transactions.
type fakeProvider struct {
	chain        types.Chain
	pages        map[string][]types.SignatureInfo // keyed by before cursor
	transactions map[string]types.EnhancedTransaction
	sigErr       error

	mu           sync.Mutex
	fetchedSigs  [][]string
	fetchModes   []adapter.FetchMode
	webhookCalls int
	webhookErr   error
}

func (p *fakeProvider) Chain() types.Chain { return p.chain }

func (p *fakeProvider) GetSignatures(ctx context.Context, address string, opts adapter.SignatureOptions) ([]types.SignatureInfo, error) {
	if p.sigErr != nil {
		return nil, p.sigErr
	}
	return p.pages[opts.Before], nil
}

func (p *fakeProvider) GetEnhancedTransactions(ctx context.Context, signatures []string, mode adapter.FetchMode) ([]types.EnhancedTransaction, error) {
	p.mu.Lock()
	p.fetchedSigs = append(p.fetchedSigs, signatures)
	p.fetchModes = append(p.fetchModes, mode)
	p.mu.Unlock()

	var txs []types.EnhancedTransaction
	for _, sig := range signatures {
		if tx, ok := p.transactions[sig]; ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

func (p *fakeProvider) RegisterWebhook(ctx context.Context, address, secret string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.webhookCalls++
	return p.webhookErr
}

func (p *fakeProvider) ValidateAddress(address string) bool {
	return len(address) > 10
}

func solanaTestWallet() *models.AgentWallet {
	return &models.AgentWallet{
		ID:            "wallet-1",
		AgentID:       "agent-1",
		Chain:         types.ChainSolana,
		WalletAddress: "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK",
	}
}

// swapTx builds a minimal buy transaction: 1 SOL in, tokens of mint out.
func swapTx(signature, mint string, blockTime int64) types.EnhancedTransaction {
	return types.EnhancedTransaction{
		Signature: signature,
		Timestamp: blockTime,
		Type:      "SWAP",
		Source:    "RAYDIUM",
		FeePayer:  "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK",
		Events: types.Events{
			Swap: &types.SwapEvent{
				NativeInput: &types.NativeAmount{
					Account: "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK",
					Amount:  "1000000000",
				},
				TokenOutputs: []types.SwapToken{{
					UserAccount:    "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK",
					Mint:           mint,
					RawTokenAmount: types.RawTokenAmount{TokenAmount: "500000000", Decimals: 6},
				}},
			},
		},
	}
}

// ledgerTrade builds a trade row directly, for ranking tests.
func ledgerTrade(agentID, signature string, tradeType types.TradeType, token string, valueUSD float64, isBuyback bool) *models.Trade {
	trade := &models.Trade{
		ID:                signature,
		AgentID:           agentID,
		Chain:             types.ChainSolana,
		TxSignature:       signature,
		BlockTime:         time.Unix(1700000000, 0).UTC(),
		Platform:          "raydium",
		TradeType:         tradeType,
		BaseAssetPriceUSD: 100,
		TradeValueUSD:     valueUSD,
		IsBuyback:         isBuyback,
	}
	if tradeType == types.TradeTypeBuy {
		trade.TokenInAddress = types.SolanaNativeMint
		trade.TokenOutAddress = token
		trade.TokenOutAmount = "500000000"
		trade.TokenInAmount = "1000000000"
	} else {
		trade.TokenInAddress = token
		trade.TokenOutAddress = types.SolanaNativeMint
		trade.TokenInAmount = "500000000"
		trade.TokenOutAmount = "1000000000"
	}
	return trade
}
