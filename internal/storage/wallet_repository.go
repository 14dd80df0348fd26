package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// WalletRepository handles agent wallet persistence
type WalletRepository struct {
	db *PostgresDB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *PostgresDB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Create persists a new agent wallet. EVM addresses are lowercased before
// storage so lookups are case-insensitive.
func (r *WalletRepository) Create(ctx context.Context, wallet *models.AgentWallet) error {
	if wallet.ID == "" {
		wallet.ID = uuid.New().String()
	}
	if wallet.CreatedAt.IsZero() {
		wallet.CreatedAt = time.Now().UTC()
	}
	wallet.WalletAddress = normalizeWalletAddress(wallet.WalletAddress, wallet.Chain)

	query := `
		INSERT INTO agent_wallets (id, agent_id, chain, wallet_address, token_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		wallet.ID,
		wallet.AgentID,
		wallet.Chain,
		wallet.WalletAddress,
		wallet.TokenAddress,
		wallet.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// GetByAddress retrieves a wallet by address and chain. Returns (nil, nil)
// when no wallet is registered for that address.
func (r *WalletRepository) GetByAddress(ctx context.Context, address string, chain types.Chain) (*models.AgentWallet, error) {
	query := `
		SELECT id, agent_id, chain, wallet_address, token_address, created_at
		FROM agent_wallets
		WHERE wallet_address = $1 AND chain = $2
	`

	wallet, err := scanWallet(r.db.Pool().QueryRow(ctx, query, normalizeWalletAddress(address, chain), chain))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

// GetByAgent retrieves an agent's wallet on one chain. Returns (nil, nil)
// when none exists.
func (r *WalletRepository) GetByAgent(ctx context.Context, agentID string, chain types.Chain) (*models.AgentWallet, error) {
	query := `
		SELECT id, agent_id, chain, wallet_address, token_address, created_at
		FROM agent_wallets
		WHERE agent_id = $1 AND chain = $2
	`

	wallet, err := scanWallet(r.db.Pool().QueryRow(ctx, query, agentID, chain))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

// List retrieves all registered wallets
func (r *WalletRepository) List(ctx context.Context) ([]*models.AgentWallet, error) {
	query := `
		SELECT id, agent_id, chain, wallet_address, token_address, created_at
		FROM agent_wallets
		ORDER BY created_at ASC
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*models.AgentWallet
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, wallet)
	}
	return wallets, rows.Err()
}

// SetTokenAddress sets a wallet's creator token. The token may be set only
// once; a second call fails.
func (r *WalletRepository) SetTokenAddress(ctx context.Context, walletID, tokenAddress string) error {
	query := `
		UPDATE agent_wallets
		SET token_address = $2
		WHERE id = $1 AND token_address IS NULL
	`

	tag, err := r.db.Pool().Exec(ctx, query, walletID, tokenAddress)
	if err != nil {
		return fmt.Errorf("failed to set token address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &types.ServiceError{
			Code:    "TOKEN_ALREADY_SET",
			Message: "creator token address is already set for this wallet",
			Details: map[string]any{"wallet_id": walletID},
		}
	}
	return nil
}

func scanWallet(row rowScanner) (*models.AgentWallet, error) {
	var wallet models.AgentWallet
	err := row.Scan(
		&wallet.ID,
		&wallet.AgentID,
		&wallet.Chain,
		&wallet.WalletAddress,
		&wallet.TokenAddress,
		&wallet.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func normalizeWalletAddress(address string, chain types.Chain) string {
	if chain.IsEVM() {
		return strings.ToLower(address)
	}
	return address
}
