package model

import (
	"strings"
	"time"
)

// ChatScope names the audience of a chat message: the global lobby,
// or a single match ("match:<id>").
type ChatScope string

// ScopeLobby is the global scope every authenticated session subscribes to.
const ScopeLobby ChatScope = "lobby"

// MatchScope returns the scope for a specific match.
func MatchScope(id MatchID) ChatScope {
	return ChatScope("match:" + string(id))
}

// MatchID extracts the match ID from a match scope, or "" for other scopes.
func (s ChatScope) MatchID() MatchID {
	if rest, ok := strings.CutPrefix(string(s), "match:"); ok {
		return MatchID(rest)
	}
	return ""
}

// IsLobby reports whether the scope is the global lobby.
func (s ChatScope) IsLobby() bool {
	return s == ScopeLobby
}

// ChatMessage is a relayed text message. Immutable once emitted.
type ChatMessage struct {
	From   PlayerID  `json:"user"`
	Scope  ChatScope `json:"scope"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}
