package testutil

import (
	"sync"

	"github.com/mcoot/rpsduel-go/internal/model"
)

// RecordingSink captures pushed events for assertions in tests.
type RecordingSink struct {
	mu     sync.Mutex
	byUser map[model.PlayerID][]model.Event
	lobby  []model.Event
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{byUser: make(map[model.PlayerID][]model.Event)}
}

func (s *RecordingSink) SendTo(playerID model.PlayerID, event model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[playerID] = append(s.byUser[playerID], event)
}

func (s *RecordingSink) BroadcastLobby(event model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lobby = append(s.lobby, event)
}

// EventsFor returns all events sent directly to the given player.
func (s *RecordingSink) EventsFor(playerID model.PlayerID) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Event(nil), s.byUser[playerID]...)
}

// LastFor returns the most recent event sent to the player, or false.
func (s *RecordingSink) LastFor(playerID model.PlayerID) (model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.byUser[playerID]
	if len(events) == 0 {
		return model.Event{}, false
	}
	return events[len(events)-1], true
}

// LobbyEvents returns all lobby broadcasts.
func (s *RecordingSink) LobbyEvents() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Event(nil), s.lobby...)
}

// Reset clears everything recorded so far.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser = make(map[model.PlayerID][]model.Event)
	s.lobby = nil
}
