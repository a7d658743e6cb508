package matchmaking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/rpsduel-go/internal/dependencies/clock"
	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/push"
)

// MatchCreator is the slice of the match engine the matchmaker needs.
type MatchCreator interface {
	Create(ctx context.Context, a, b model.PlayerID) (*model.Match, error)
	InMatch(playerID model.PlayerID) bool
}

// entry is one waiting session, timestamped by enqueue time.
type entry struct {
	playerID   model.PlayerID
	enqueuedAt time.Time
}

// Service pairs waiting players into matches, oldest first.
type Service struct {
	creator MatchCreator
	sink    push.Sink
	clock   clock.Clock
	logger  *slog.Logger

	// mu guards the queue; held across a whole pairing so no two
	// pairings can draw from overlapping entries.
	mu     sync.Mutex
	queue  []entry
	queued map[model.PlayerID]struct{}
}

// New creates a new matchmaking service
func New(creator MatchCreator, sink push.Sink, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		creator: creator,
		sink:    sink,
		clock:   clk,
		logger:  logger.With(slog.String("component", "matchmaking")),
		queued:  make(map[model.PlayerID]struct{}),
	}
}

// Enqueue adds a player to the queue. If an opponent is already waiting,
// the two oldest entries are paired immediately into a new open match.
func (s *Service) Enqueue(ctx context.Context, playerID model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queued[playerID]; ok {
		return model.ErrAlreadyQueued
	}
	if s.creator.InMatch(playerID) {
		return model.ErrAlreadyInMatch
	}

	s.queue = append(s.queue, entry{playerID: playerID, enqueuedAt: s.clock.Now()})
	s.queued[playerID] = struct{}{}

	if len(s.queue) < 2 {
		s.logger.Info("player queued",
			slog.String("player_id", string(playerID)),
			slog.Int("queue_len", len(s.queue)),
		)
		s.sink.SendTo(playerID, model.Event{
			Type:      model.EventQueued,
			Timestamp: s.clock.Now(),
			Payload:   model.QueuedPayload{Position: len(s.queue)},
		})
		return nil
	}

	// FIFO: always pair the two oldest waiting entries
	a, b := s.queue[0], s.queue[1]
	s.queue = s.queue[2:]
	delete(s.queued, a.playerID)
	delete(s.queued, b.playerID)

	if _, err := s.creator.Create(ctx, a.playerID, b.playerID); err != nil {
		// Put both back at the head so nobody loses their place
		s.queue = append([]entry{a, b}, s.queue...)
		s.queued[a.playerID] = struct{}{}
		s.queued[b.playerID] = struct{}{}
		s.logger.Error("pairing failed",
			slog.String("player_a", string(a.playerID)),
			slog.String("player_b", string(b.playerID)),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.logger.Info("players paired",
		slog.String("player_a", string(a.playerID)),
		slog.String("player_b", string(b.playerID)),
		slog.Duration("waited", s.clock.Since(a.enqueuedAt)),
	)
	return nil
}

// Cancel removes a player's queue entry if present; no-op otherwise.
func (s *Service) Cancel(playerID model.PlayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queued[playerID]; !ok {
		return
	}
	delete(s.queued, playerID)
	for i, e := range s.queue {
		if e.playerID == playerID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	s.logger.Info("queue entry cancelled", slog.String("player_id", string(playerID)))
}

// Len returns the number of waiting entries.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
