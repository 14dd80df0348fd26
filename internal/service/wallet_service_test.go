package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/adapter"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

func walletInput() RegisterWalletInput {
	return RegisterWalletInput{
		AgentID:       "agent-1",
		Chain:         types.ChainSolana,
		WalletAddress: "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK",
	}
}

func TestWalletServiceRegister(t *testing.T) {
	provider := &fakeProvider{chain: types.ChainSolana}
	wallets := &fakeWalletStore{}
	svc := NewWalletService(wallets, adapter.NewRegistry(provider), nil, "secret", testLogger())

	wallet, err := svc.Register(context.Background(), walletInput())
	require.NoError(t, err)
	require.NotNil(t, wallet)
	assert.NotEmpty(t, wallet.ID)
	assert.Equal(t, "agent-1", wallet.AgentID)

	// Webhook registration is detached and best-effort.
	require.Eventually(t, func() bool {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		return provider.webhookCalls == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWalletServiceRegisterSpawnsBackfill(t *testing.T) {
	provider := &fakeProvider{
		chain: types.ChainSolana,
		pages: map[string][]types.SignatureInfo{
			"": {{Signature: "sig1", BlockTime: time.Unix(1700000100, 0).UTC()}},
		},
		transactions: map[string]types.EnhancedTransaction{
			"sig1": swapTx("sig1", testMint, 1700000100),
		},
	}
	trades := newFakeTradeStore()
	wallets := &fakeWalletStore{}
	engine := newTestEngine(provider, trades)
	svc := NewWalletService(wallets, adapter.NewRegistry(provider), engine, "secret", testLogger())

	_, err := svc.Register(context.Background(), walletInput())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return trades.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Registration backfills are user-triggered and use the provider's
	// interactive profile.
	provider.mu.Lock()
	defer provider.mu.Unlock()
	require.NotEmpty(t, provider.fetchModes)
	assert.Equal(t, adapter.FetchModeInteractive, provider.fetchModes[0])
}

func TestWalletServiceRegisterValidation(t *testing.T) {
	provider := &fakeProvider{chain: types.ChainSolana}
	svc := NewWalletService(&fakeWalletStore{}, adapter.NewRegistry(provider), nil, "secret", testLogger())
	ctx := context.Background()

	tests := []struct {
		name     string
		input    RegisterWalletInput
		wantCode string
	}{
		{"missing agent", RegisterWalletInput{Chain: types.ChainSolana, WalletAddress: "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK"}, "INVALID_INPUT"},
		{"bad chain", RegisterWalletInput{AgentID: "a", Chain: "bitcoin", WalletAddress: "x"}, "INVALID_CHAIN"},
		{"bad address", RegisterWalletInput{AgentID: "a", Chain: types.ChainSolana, WalletAddress: "short"}, "INVALID_ADDRESS_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.input)
			require.Error(t, err)

			var svcErr *types.ServiceError
			require.True(t, errors.As(err, &svcErr))
			assert.Equal(t, tt.wantCode, svcErr.Code)
		})
	}
}

func TestWalletServiceRegisterDuplicate(t *testing.T) {
	provider := &fakeProvider{chain: types.ChainSolana}
	wallets := &fakeWalletStore{}
	svc := NewWalletService(wallets, adapter.NewRegistry(provider), nil, "secret", testLogger())
	ctx := context.Background()

	_, err := svc.Register(ctx, walletInput())
	require.NoError(t, err)

	_, err = svc.Register(ctx, walletInput())
	require.Error(t, err)

	var svcErr *types.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "WALLET_EXISTS", svcErr.Code)
}

func TestWalletServiceRegisterSurvivesWebhookFailure(t *testing.T) {
	provider := &fakeProvider{chain: types.ChainSolana, webhookErr: errors.New("provider down")}
	wallets := &fakeWalletStore{}
	svc := NewWalletService(wallets, adapter.NewRegistry(provider), nil, "secret", testLogger())

	wallet, err := svc.Register(context.Background(), walletInput())
	require.NoError(t, err)
	assert.NotNil(t, wallet)
}

func TestWalletServiceSetTokenOnce(t *testing.T) {
	provider := &fakeProvider{chain: types.ChainSolana}
	wallets := &fakeWalletStore{}
	svc := NewWalletService(wallets, adapter.NewRegistry(provider), nil, "secret", testLogger())
	ctx := context.Background()

	wallet, err := svc.Register(ctx, walletInput())
	require.NoError(t, err)

	require.NoError(t, svc.SetTokenAddress(ctx, wallet.ID, tokenA))
	err = svc.SetTokenAddress(ctx, wallet.ID, tokenB)
	require.Error(t, err)

	assert.Error(t, svc.SetTokenAddress(ctx, wallet.ID, ""))
}
