package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/adapter"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/service"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// handleRegisterWallet registers an agent wallet and kicks off its initial
// sync.
func (s *Server) handleRegisterWallet(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterWalletInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	wallet, err := s.walletService.Register(r.Context(), input)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusCreated, wallet)
}

// handleSetTokenAddress sets a wallet's creator token, once.
func (s *Server) handleSetTokenAddress(w http.ResponseWriter, r *http.Request) {
	walletID := mux.Vars(r)["id"]

	var input struct {
		TokenAddress string `json:"tokenAddress"`
	}
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if err := s.walletService.SetTokenAddress(r.Context(), walletID, input.TokenAddress); err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// BackfillRequest triggers a manual resync for a registered wallet.
type BackfillRequest struct {
	WalletAddress string      `json:"walletAddress"`
	Chain         types.Chain `json:"chain"`
	SinceHours    int         `json:"sinceHours,omitempty"`
	Limit         int         `json:"limit,omitempty"`
}

// handleTriggerBackfill starts an on-demand backfill in the background and
// returns immediately. Re-running is safe: the ledger's unique constraint
// absorbs overlap with live ingestion.
func (s *Server) handleTriggerBackfill(w http.ResponseWriter, r *http.Request) {
	var req BackfillRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	wallet, err := service.ResolveWallet(r.Context(), s.wallets, req.WalletAddress, req.Chain)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	opts := service.BackfillOptions{Limit: req.Limit, Mode: adapter.FetchModeInteractive}
	if req.SinceHours > 0 {
		opts.SinceTime = time.Now().UTC().Add(-time.Duration(req.SinceHours) * time.Hour)
	}

	snapshot := *wallet
	backfill := s.backfill
	service.Spawn(s.logger, "manual_backfill", func(ctx context.Context) error {
		_, err := backfill.Backfill(ctx, &snapshot, opts)
		return err
	})

	respondJSON(w, http.StatusAccepted, map[string]bool{"started": true})
}
