package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/adapter"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// WalletWriter is the wallet persistence surface the registration flow uses.
type WalletWriter interface {
	WalletStore
	Create(ctx context.Context, wallet *models.AgentWallet) error
	SetTokenAddress(ctx context.Context, walletID, tokenAddress string) error
}

// RegisterWalletInput is the registration request for one (agent, chain)
// wallet.
type RegisterWalletInput struct {
	AgentID       string      `json:"agentId"`
	Chain         types.Chain `json:"chain"`
	WalletAddress string      `json:"walletAddress"`
	TokenAddress  string      `json:"tokenAddress,omitempty"`
}

// WalletService registers agent wallets and kicks off their initial sync.
type WalletService struct {
	wallets       WalletWriter
	providers     *adapter.Registry
	backfill      *BackfillEngine
	webhookSecret string
	logger        *logging.Logger
}

// NewWalletService creates a wallet service. backfill may be nil to disable
// the initial sync (tooling, tests).
func NewWalletService(wallets WalletWriter, providers *adapter.Registry, backfill *BackfillEngine, webhookSecret string, logger *logging.Logger) *WalletService {
	return &WalletService{
		wallets:       wallets,
		providers:     providers,
		backfill:      backfill,
		webhookSecret: webhookSecret,
		logger:        logger.WithField("component", "wallet_service"),
	}
}

// Register validates and persists a new agent wallet, then best-effort
// registers the provider webhook and spawns an initial backfill. Webhook and
// backfill failures never fail the registration.
func (s *WalletService) Register(ctx context.Context, input RegisterWalletInput) (*models.AgentWallet, error) {
	if input.AgentID == "" {
		return nil, &types.ServiceError{Code: "INVALID_INPUT", Message: "agentId is required"}
	}
	if !input.Chain.IsValid() {
		return nil, &types.ServiceError{
			Code:    "INVALID_CHAIN",
			Message: fmt.Sprintf("unsupported chain: %s", input.Chain),
		}
	}

	provider, err := s.providers.Provider(input.Chain)
	if err != nil {
		return nil, err
	}
	if !provider.ValidateAddress(input.WalletAddress) {
		return nil, &types.ServiceError{
			Code:    "INVALID_ADDRESS_FORMAT",
			Message: fmt.Sprintf("invalid %s address: %s", input.Chain, input.WalletAddress),
			Details: map[string]any{"address": input.WalletAddress, "chain": input.Chain},
		}
	}

	existing, err := s.wallets.GetByAddress(ctx, input.WalletAddress, input.Chain)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &types.ServiceError{
			Code:    "WALLET_EXISTS",
			Message: "wallet is already registered",
			Details: map[string]any{"wallet_id": existing.ID},
		}
	}

	wallet := &models.AgentWallet{
		AgentID:       input.AgentID,
		Chain:         input.Chain,
		WalletAddress: input.WalletAddress,
	}
	if input.TokenAddress != "" {
		token := input.TokenAddress
		wallet.TokenAddress = &token
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"agent_id": wallet.AgentID,
		"chain":    wallet.Chain,
		"address":  wallet.WalletAddress,
	}).Info("Wallet registered")

	address := wallet.WalletAddress
	Spawn(s.logger, "webhook_register", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return provider.RegisterWebhook(ctx, address, s.webhookSecret)
	})

	if s.backfill != nil {
		snapshot := *wallet
		Spawn(s.logger, "initial_backfill", func(ctx context.Context) error {
			_, err := s.backfill.Backfill(ctx, &snapshot, BackfillOptions{Mode: adapter.FetchModeInteractive})
			return err
		})
	}

	return wallet, nil
}

// SetTokenAddress sets a wallet's creator token. The token may be set only
// once.
func (s *WalletService) SetTokenAddress(ctx context.Context, walletID, tokenAddress string) error {
	if tokenAddress == "" {
		return &types.ServiceError{Code: "INVALID_INPUT", Message: "tokenAddress is required"}
	}
	return s.wallets.SetTokenAddress(ctx, walletID, tokenAddress)
}
