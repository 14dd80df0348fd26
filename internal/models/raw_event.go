package models

import (
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// RawEvent is one webhook delivery item archived verbatim in ClickHouse,
// including items that were skipped (malformed, unknown wallet, unpriced).
// The archive exists for audit and replay debugging only; the ledger never
// reads from it.
type RawEvent struct {
	ID         string
	Chain      types.Chain
	Source     string // delivery path: webhook, poll, backfill
	Payload    string // raw JSON of the delivery item
	ReceivedAt time.Time
}
