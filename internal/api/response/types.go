package response

import (
	"time"

	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/services/auth"
)

// IdentityResponse is a player identity as returned by the API
type IdentityResponse struct {
	PlayerID  model.PlayerID `json:"player_id"`
	Rating    int            `json:"rating"`
	CreatedAt time.Time      `json:"created_at"`
}

// IdentityFromModel converts a model identity to a response
func IdentityFromModel(identity *model.Identity) IdentityResponse {
	return IdentityResponse{
		PlayerID:  identity.ID,
		Rating:    identity.Rating,
		CreatedAt: identity.CreatedAt,
	}
}

// AuthResponse is returned on successful login
type AuthResponse struct {
	Token    string         `json:"token"`
	PlayerID model.PlayerID `json:"player_id"`
}

// AuthResponseFromSession converts a session to a response
func AuthResponseFromSession(session *auth.Session) AuthResponse {
	return AuthResponse{
		Token:    session.Token,
		PlayerID: session.PlayerID,
	}
}

// LeaderboardResponse is the ranked standings as returned by the API
type LeaderboardResponse struct {
	Entries []model.LeaderboardEntry `json:"entries"`
}
