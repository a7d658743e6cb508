package handler

import (
	"net/http"
	"strconv"

	"github.com/mcoot/rpsduel-go/internal/api/apierr"
	"github.com/mcoot/rpsduel-go/internal/api/response"
	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/services/rating"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// LeaderboardHandler handles the leaderboard endpoint
type LeaderboardHandler struct {
	ratingService *rating.Service
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(ratingService *rating.Service) *LeaderboardHandler {
	return &LeaderboardHandler{
		ratingService: ratingService,
	}
}

// Get handles GET /api/v1/leaderboard
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			apierr.WriteError(w, apierr.NewInvalidRequestError("limit must be a positive integer"))
			return
		}
		limit = min(parsed, maxLeaderboardLimit)
	}

	entries, err := h.ratingService.Leaderboard(r.Context(), limit)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	resp := response.LeaderboardResponse{Entries: []model.LeaderboardEntry{}}
	for entry := range entries {
		resp.Entries = append(resp.Entries, entry)
	}
	response.JSON(w, http.StatusOK, resp)
}
