package api

import (
	"net/http"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
)

// RankingsResponse is the leaderboard read payload: the current generation's
// rows, rank ascending.
type RankingsResponse struct {
	Rankings []*models.PerformanceRanking `json:"rankings"`
	Count    int                          `json:"count"`
}

// handleGetRankings returns the current ranking snapshot.
func (s *Server) handleGetRankings(w http.ResponseWriter, r *http.Request) {
	rankings, err := s.rankings.GetCurrent(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to read current ranking")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to read rankings", nil)
		return
	}
	if rankings == nil {
		rankings = []*models.PerformanceRanking{}
	}

	respondJSON(w, http.StatusOK, RankingsResponse{
		Rankings: rankings,
		Count:    len(rankings),
	})
}
