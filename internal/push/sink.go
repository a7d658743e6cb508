// Package push defines the contract services use to emit server→client
// events without knowing about the transport behind it.
package push

import "github.com/mcoot/rpsduel-go/internal/model"

// Sink delivers events to connected sessions. Delivery is best-effort:
// a slow or disconnected client drops events rather than blocking the caller.
type Sink interface {
	// SendTo delivers an event to a single player's live session, if any.
	SendTo(playerID model.PlayerID, event model.Event)

	// BroadcastLobby delivers an event to every connected session.
	BroadcastLobby(event model.Event)
}

// NopSink discards all events. Used when no transport is attached.
type NopSink struct{}

var _ Sink = NopSink{}

func (NopSink) SendTo(model.PlayerID, model.Event) {}

func (NopSink) BroadcastLobby(model.Event) {}
