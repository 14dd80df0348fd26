package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// webhookAck is the response every authenticated, well-formed delivery gets,
// regardless of per-item outcomes. Partial failure stays invisible to the
// indexer so it never retry-storms us.
var webhookAck = map[string]bool{"received": true}

// handleSolanaWebhook handles enhanced-transaction pushes: a JSON array of
// transaction objects. Items are processed sequentially; an item failure is
// logged and skipped.
func (s *Server) handleSolanaWebhook(w http.ResponseWriter, r *http.Request) {
	var items []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	for _, raw := range items {
		var tx types.EnhancedTransaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			s.logger.WithError(err).Debug("Skipping undecodable delivery item")
			continue
		}
		tx.Raw = raw
		s.processor.ProcessItem(r.Context(), types.ChainSolana, tx)
	}

	respondJSON(w, http.StatusOK, webhookAck)
}

// monadActivity is one loosely-typed activity record from the EVM indexer's
// envelope. Numeric fields arrive as strings or numbers depending on the
// indexer version.
type monadActivity struct {
	Hash            string      `json:"hash"`
	BlockTimestamp  json.Number `json:"blockTimestamp"`
	FromAddress     string      `json:"fromAddress"`
	Platform        string      `json:"platform"`
	TradeType       string      `json:"tradeType"`
	TokenInAddress  string      `json:"tokenInAddress"`
	TokenInAmount   string      `json:"tokenInAmount"`
	TokenOutAddress string      `json:"tokenOutAddress"`
	TokenOutAmount  string      `json:"tokenOutAmount"`
	BaseAssetAmount string      `json:"baseAssetAmount"`
}

// handleMonadWebhook handles activity pushes wrapped in an
// {event: {activity: [...]}} envelope.
func (s *Server) handleMonadWebhook(w http.ResponseWriter, r *http.Request) {
	var envelope struct {
		Event struct {
			Activity []json.RawMessage `json:"activity"`
		} `json:"event"`
	}
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	for _, raw := range envelope.Event.Activity {
		var activity monadActivity
		if err := json.Unmarshal(raw, &activity); err != nil {
			s.logger.WithError(err).Debug("Skipping undecodable activity record")
			continue
		}
		tx, err := activityToTransaction(activity)
		if err != nil {
			s.logger.WithError(err).WithField("hash", activity.Hash).Debug("Skipping activity record with bad block timestamp")
			continue
		}
		tx.Raw = raw
		s.processor.ProcessItem(r.Context(), types.ChainMonad, tx)
	}

	respondJSON(w, http.StatusOK, webhookAck)
}

// activityToTransaction normalizes an activity record into the enhanced
// transaction envelope the pipeline consumes. Records whose block timestamp
// is not a whole number are rejected rather than recorded at the zero time.
func activityToTransaction(activity monadActivity) (types.EnhancedTransaction, error) {
	timestamp, err := strconv.ParseInt(activity.BlockTimestamp.String(), 10, 64)
	if err != nil {
		return types.EnhancedTransaction{}, fmt.Errorf("parse block timestamp %q: %w", activity.BlockTimestamp.String(), err)
	}

	tx := types.EnhancedTransaction{
		Signature: activity.Hash,
		Timestamp: timestamp,
		FeePayer:  activity.FromAddress,
		Type:      "SWAP",
		Source:    activity.Platform,
	}
	if activity.TokenInAddress != "" && activity.TokenOutAddress != "" {
		tx.SwapHistory = &types.VendorSwapRecord{
			Platform:        activity.Platform,
			TradeType:       activity.TradeType,
			TokenInAddress:  activity.TokenInAddress,
			TokenInAmount:   activity.TokenInAmount,
			TokenOutAddress: activity.TokenOutAddress,
			TokenOutAmount:  activity.TokenOutAmount,
			BaseAssetAmount: activity.BaseAssetAmount,
		}
	}
	return tx, nil
}
