package model

import "time"

// EventType identifies the type of server→client event.
// Names follow the client's socket vocabulary.
type EventType string

const (
	EventQueued         EventType = "queued"
	EventMatchFound     EventType = "match_found"
	EventGameResult     EventType = "game_result"
	EventMatchAbandoned EventType = "match_abandoned"
	EventChat           EventType = "chat"
	EventError          EventType = "error"
)

// Event is the base structure for all pushed events.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any // Type-specific data, serialized as the wire payload
}

// QueuedPayload contains data for queued events.
type QueuedPayload struct {
	Position int `json:"position"` // 1-based position in the queue
}

// MatchFoundPayload contains data for match found events.
// Deliberately carries no move information.
type MatchFoundPayload struct {
	MatchID  MatchID  `json:"match_id"`
	Opponent PlayerID `json:"opponent"`
}

// GameResultPayload contains data for game result events.
// Field names match what the client destructures from game_result.
type GameResultPayload struct {
	MatchID     MatchID            `json:"match_id"`
	Move        Move               `json:"move"`
	Opponent    Move               `json:"opponent"`
	Outcome     Outcome            `json:"outcome"`
	RatingDelta int                `json:"rating_delta"`
	Rating      int                `json:"rating"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// MatchAbandonedPayload contains data for match abandoned events.
type MatchAbandonedPayload struct {
	MatchID MatchID       `json:"match_id"`
	Reason  AbandonReason `json:"reason"`
	Rating  int           `json:"rating"` // unchanged unless a walkover was awarded
}

// ErrorPayload contains data for error events pushed to the offending caller.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
