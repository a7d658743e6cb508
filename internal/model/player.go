package model

import "time"

// PlayerID uniquely identifies a player across the system.
// It is the player's email-like login identifier.
type PlayerID string

// DefaultRating is the rating assigned to newly registered identities.
const DefaultRating = 1200

// Identity is the public record for a registered player.
type Identity struct {
	ID        PlayerID  `json:"id"`
	Rating    int       `json:"rating"`
	Seq       int64     `json:"seq"` // registration order, used as the leaderboard tie-break
	CreatedAt time.Time `json:"created_at"`
}

// Credential holds a player's login secret.
// Stored separately from Identity so the hash never travels with session state.
type Credential struct {
	PlayerID     PlayerID  `json:"player_id"`
	PasswordHash string    `json:"password_hash"` // bcrypt hash
	CreatedAt    time.Time `json:"created_at"`
}
