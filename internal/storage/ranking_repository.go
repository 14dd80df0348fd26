package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
)

// RankingRepository handles performance ranking snapshots. A snapshot is a
// full set of rows sharing one generation id and ranked_at; readers only ever
// see the generation marked current, which flips atomically after every row
// of the new generation exists.
type RankingRepository struct {
	db *PostgresDB
}

// NewRankingRepository creates a new ranking repository
func NewRankingRepository(db *PostgresDB) *RankingRepository {
	return &RankingRepository{db: db}
}

// WriteSnapshot persists a complete ranking generation and flips the current
// pointer to it. The row inserts happen outside the pointer transaction: an
// interrupted run leaves orphaned rows that are never queried and are later
// removed by PruneOrphans.
func (r *RankingRepository) WriteSnapshot(ctx context.Context, rankings []*models.PerformanceRanking) error {
	if len(rankings) == 0 {
		return nil
	}

	generation := rankings[0].Generation
	rankedAt := rankings[0].RankedAt

	insertQuery := `
		INSERT INTO performance_rankings (
			id, generation, agent_id, total_pnl_usd, win_rate, total_trades,
			total_volume_usd, token_price_change_24h, buyback_total_base_asset,
			buyback_total_tokens, rank, ranked_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	for _, ranking := range rankings {
		if ranking.ID == "" {
			ranking.ID = uuid.New().String()
		}
		_, err := r.db.Pool().Exec(ctx, insertQuery,
			ranking.ID,
			ranking.Generation,
			ranking.AgentID,
			ranking.TotalPnlUSD,
			ranking.WinRate,
			ranking.TotalTrades,
			ranking.TotalVolumeUSD,
			ranking.TokenPriceChange24h,
			ranking.BuybackTotalBaseAsset,
			ranking.BuybackTotalTokens,
			ranking.Rank,
			ranking.RankedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert ranking row: %w", err)
		}
	}

	// Every row exists; make the generation visible in one transaction.
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `UPDATE ranking_generations SET current = FALSE WHERE current`); err != nil {
		return fmt.Errorf("failed to clear current generation: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO ranking_generations (generation, ranked_at, agent_count, current) VALUES ($1, $2, $3, TRUE)`,
		generation, rankedAt, len(rankings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert generation marker: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit generation flip: %w", err)
	}
	return nil
}

// GetCurrent retrieves the rows of the current generation, rank ascending.
func (r *RankingRepository) GetCurrent(ctx context.Context) ([]*models.PerformanceRanking, error) {
	query := `
		SELECT p.id, p.generation, p.agent_id, p.total_pnl_usd, p.win_rate,
			   p.total_trades, p.total_volume_usd, p.token_price_change_24h,
			   p.buyback_total_base_asset, p.buyback_total_tokens, p.rank, p.ranked_at
		FROM performance_rankings p
		JOIN ranking_generations g ON g.generation = p.generation
		WHERE g.current
		ORDER BY p.rank ASC
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get current ranking: %w", err)
	}
	defer rows.Close()

	var rankings []*models.PerformanceRanking
	for rows.Next() {
		var ranking models.PerformanceRanking
		err := rows.Scan(
			&ranking.ID,
			&ranking.Generation,
			&ranking.AgentID,
			&ranking.TotalPnlUSD,
			&ranking.WinRate,
			&ranking.TotalTrades,
			&ranking.TotalVolumeUSD,
			&ranking.TokenPriceChange24h,
			&ranking.BuybackTotalBaseAsset,
			&ranking.BuybackTotalTokens,
			&ranking.Rank,
			&ranking.RankedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}
		rankings = append(rankings, &ranking)
	}
	return rankings, rows.Err()
}

// PruneOrphans deletes non-current ranking generations older than the
// retention window, including rows from interrupted runs that never got a
// generation marker. Returns the number of ranking rows removed.
func (r *RankingRepository) PruneOrphans(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)

	tag, err := r.db.Pool().Exec(ctx, `
		DELETE FROM performance_rankings p
		WHERE p.ranked_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM ranking_generations g
			WHERE g.generation = p.generation AND g.current
		  )
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune ranking rows: %w", err)
	}

	_, err = r.db.Pool().Exec(ctx,
		`DELETE FROM ranking_generations WHERE NOT current AND ranked_at < $1`, cutoff)
	if err != nil {
		return tag.RowsAffected(), fmt.Errorf("failed to prune generation markers: %w", err)
	}
	return tag.RowsAffected(), nil
}
