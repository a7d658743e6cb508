package model

import "time"

// MatchID uniquely identifies a match.
type MatchID string

// MatchState represents the lifecycle phase of a match.
type MatchState string

const (
	MatchStateOpen      MatchState = "open"      // Waiting for moves
	MatchStateResolved  MatchState = "resolved"  // Both moves received and scored
	MatchStateAbandoned MatchState = "abandoned" // Timeout or disconnect
)

// AbandonReason records why a match ended without resolution.
type AbandonReason string

const (
	AbandonReasonDisconnect AbandonReason = "disconnect"
	AbandonReasonTimeout    AbandonReason = "timeout"
)

// Match is a single contest between exactly two players.
type Match struct {
	ID      MatchID     `json:"id"`
	Players [2]PlayerID `json:"players"`
	State   MatchState  `json:"state"`

	// Moves submitted so far, at most one per participant.
	// Never exposed to the opponent while the match is open.
	Moves map[PlayerID]Move `json:"moves"`

	CreatedAt  time.Time `json:"created_at"`
	ResolvedAt time.Time `json:"resolved_at,omitzero"`
}

// HasPlayer reports whether id participates in the match.
func (m *Match) HasPlayer(id PlayerID) bool {
	return m.Players[0] == id || m.Players[1] == id
}

// Opponent returns the other participant, or "" if id is not in the match.
func (m *Match) Opponent(id PlayerID) PlayerID {
	switch id {
	case m.Players[0]:
		return m.Players[1]
	case m.Players[1]:
		return m.Players[0]
	}
	return ""
}

// BothMoved reports whether every participant has submitted a move.
func (m *Match) BothMoved() bool {
	return len(m.Moves) == 2
}

// MatchResult is one participant's view of a resolved match.
// Immutable once produced.
type MatchResult struct {
	PlayerID     PlayerID `json:"player_id"`
	Move         Move     `json:"move"`
	OpponentMove Move     `json:"opponent_move"`
	Outcome      Outcome  `json:"outcome"`
	RatingDelta  int      `json:"rating_delta"`
	Rating       int      `json:"rating"`
}
