package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// RawEventRepository archives webhook delivery items in ClickHouse. Archival
// is best-effort and never blocks ingestion.
type RawEventRepository struct {
	db *ClickHouseDB
}

// NewRawEventRepository creates a new raw event repository
func NewRawEventRepository(db *ClickHouseDB) *RawEventRepository {
	return &RawEventRepository{db: db}
}

// Archive inserts one raw delivery item
func (r *RawEventRepository) Archive(ctx context.Context, event *models.RawEvent) error {
	return r.ArchiveBatch(ctx, []*models.RawEvent{event})
}

// ArchiveBatch inserts a batch of raw delivery items
func (r *RawEventRepository) ArchiveBatch(ctx context.Context, events []*models.RawEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx,
		`INSERT INTO raw_events (id, chain, source, payload, received_at)`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, event := range events {
		id := event.ID
		if id == "" {
			id = uuid.New().String()
		}
		receivedAt := event.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = time.Now().UTC()
		}
		if err := batch.Append(id, string(event.Chain), event.Source, event.Payload, receivedAt); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// CountByChain returns the number of archived events for a chain since a
// cutoff, used by operational tooling.
func (r *RawEventRepository) CountByChain(ctx context.Context, chain types.Chain, since time.Time) (uint64, error) {
	var count uint64
	err := r.db.Conn().QueryRow(ctx,
		`SELECT count() FROM raw_events WHERE chain = ? AND received_at >= ?`,
		string(chain), since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count raw events: %w", err)
	}
	return count, nil
}
