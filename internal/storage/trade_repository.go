package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// TradeRepository handles trade ledger persistence. The ledger is
// append-only: rows are inserted once and never mutated or deleted.
type TradeRepository struct {
	db *PostgresDB
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *PostgresDB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Insert writes a trade and reports whether a new row was created. A
// conflict on (tx_signature, chain) is a silent no-op: concurrent webhook,
// poll and backfill ingestion of the same transaction converge to one row.
func (r *TradeRepository) Insert(ctx context.Context, trade *models.Trade) (bool, error) {
	if trade.ID == "" {
		trade.ID = uuid.New().String()
	}
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO trades (
			id, agent_id, wallet_id, chain, tx_signature, block_time,
			platform, trade_type, token_in_address, token_in_amount,
			token_out_address, token_out_amount, base_asset_price_usd,
			trade_value_usd, is_buyback, raw_data, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (tx_signature, chain) DO NOTHING
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		trade.ID,
		trade.AgentID,
		trade.WalletID,
		trade.Chain,
		trade.TxSignature,
		trade.BlockTime,
		trade.Platform,
		trade.TradeType,
		trade.TokenInAddress,
		trade.TokenInAmount,
		trade.TokenOutAddress,
		trade.TokenOutAmount,
		trade.BaseAssetPriceUSD,
		trade.TradeValueUSD,
		trade.IsBuyback,
		trade.RawData,
		trade.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert trade: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get retrieves a trade by signature and chain. Returns (nil, nil) when no
// row exists.
func (r *TradeRepository) Get(ctx context.Context, txSignature string, chain types.Chain) (*models.Trade, error) {
	query := `
		SELECT id, agent_id, wallet_id, chain, tx_signature, block_time,
			   platform, trade_type, token_in_address, token_in_amount,
			   token_out_address, token_out_amount, base_asset_price_usd,
			   trade_value_usd, is_buyback, raw_data, created_at
		FROM trades
		WHERE tx_signature = $1 AND chain = $2
	`

	trade, err := scanTrade(r.db.Pool().QueryRow(ctx, query, txSignature, chain))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return trade, nil
}

// ListByAgent retrieves all trades for an agent, oldest first. Ordering by
// block time makes position accounting deterministic.
func (r *TradeRepository) ListByAgent(ctx context.Context, agentID string) ([]*models.Trade, error) {
	query := `
		SELECT id, agent_id, wallet_id, chain, tx_signature, block_time,
			   platform, trade_type, token_in_address, token_in_amount,
			   token_out_address, token_out_amount, base_asset_price_usd,
			   trade_value_usd, is_buyback, raw_data, created_at
		FROM trades
		WHERE agent_id = $1
		ORDER BY block_time ASC, tx_signature ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// ListAgentIDs returns the distinct agent ids present in the ledger.
func (r *TradeRepository) ListAgentIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT DISTINCT agent_id FROM trades ORDER BY agent_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agent ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan agent id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountBySignature returns how many ledger rows exist for a signature on a
// chain. Used by idempotency checks in tooling.
func (r *TradeRepository) CountBySignature(ctx context.Context, txSignature string, chain types.Chain) (int, error) {
	var count int
	err := r.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM trades WHERE tx_signature = $1 AND chain = $2`,
		txSignature, chain,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*models.Trade, error) {
	var trade models.Trade
	err := row.Scan(
		&trade.ID,
		&trade.AgentID,
		&trade.WalletID,
		&trade.Chain,
		&trade.TxSignature,
		&trade.BlockTime,
		&trade.Platform,
		&trade.TradeType,
		&trade.TokenInAddress,
		&trade.TokenInAmount,
		&trade.TokenOutAddress,
		&trade.TokenOutAmount,
		&trade.BaseAssetPriceUSD,
		&trade.TradeValueUSD,
		&trade.IsBuyback,
		&trade.RawData,
		&trade.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

func collectTrades(rows pgx.Rows) ([]*models.Trade, error) {
	var trades []*models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}
