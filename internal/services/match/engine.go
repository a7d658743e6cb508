package match

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/rpsduel-go/internal/dependencies/clock"
	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/push"
	"github.com/mcoot/rpsduel-go/internal/services/rating"
	"github.com/mcoot/rpsduel-go/internal/storage"
)

// Config holds configuration for the match engine
type Config struct {
	// MoveTimeout is how long the second player has to move once the
	// first move of a match has been received
	MoveTimeout time.Duration
	// WalkoverWins awards a rated win to the remaining player when their
	// opponent disconnects or times out, instead of a ratings-neutral
	// abandonment
	WalkoverWins bool
	// LeaderboardSize is how many entries ride along with each result
	LeaderboardSize int
}

// DefaultConfig returns the default match engine configuration
func DefaultConfig() Config {
	return Config{
		MoveTimeout:     30 * time.Second,
		WalkoverWins:    false,
		LeaderboardSize: 10,
	}
}

// liveMatch is an open match plus its engine-side bookkeeping.
// Its mutex guards the match state; the engine's mutex only guards
// the registries and is never held while a liveMatch mutex is held.
type liveMatch struct {
	mu       sync.Mutex
	match    *model.Match
	deadline time.Time // zero until the first move lands
	closed   bool
}

// ClosedHook runs after a match leaves the open set, whether resolved
// or abandoned.
type ClosedHook func(id model.MatchID)

// Engine runs the open matches: it accepts moves, resolves rounds,
// and abandons matches on disconnect or timeout.
type Engine struct {
	storage storage.Storage
	rating  *rating.Service
	sink    push.Sink
	clock   clock.Clock
	logger  *slog.Logger
	cfg     Config

	mu       sync.Mutex
	open     map[model.MatchID]*liveMatch
	byPlayer map[model.PlayerID]model.MatchID

	closedHooks []ClosedHook // registered at wiring time, before serving
}

// New creates a new match engine
func New(store storage.Storage, ratingSvc *rating.Service, sink push.Sink, clk clock.Clock, cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		storage:  store,
		rating:   ratingSvc,
		sink:     sink,
		clock:    clk,
		logger:   logger.With(slog.String("component", "match")),
		cfg:      cfg,
		open:     make(map[model.MatchID]*liveMatch),
		byPlayer: make(map[model.PlayerID]model.MatchID),
	}
}

// Create opens a new match between two players and notifies both.
// Fails with ErrAlreadyInMatch if either already has an open match.
func (e *Engine) Create(ctx context.Context, a, b model.PlayerID) (*model.Match, error) {
	m := &model.Match{
		ID:        model.MatchID(uuid.NewString()),
		Players:   [2]model.PlayerID{a, b},
		State:     model.MatchStateOpen,
		Moves:     make(map[model.PlayerID]model.Move),
		CreatedAt: e.clock.Now(),
	}

	e.mu.Lock()
	if _, ok := e.byPlayer[a]; ok {
		e.mu.Unlock()
		return nil, model.ErrAlreadyInMatch
	}
	if _, ok := e.byPlayer[b]; ok {
		e.mu.Unlock()
		return nil, model.ErrAlreadyInMatch
	}
	e.open[m.ID] = &liveMatch{match: m}
	e.byPlayer[a] = m.ID
	e.byPlayer[b] = m.ID
	e.mu.Unlock()

	e.logger.Info("match created",
		slog.String("match_id", string(m.ID)),
		slog.String("player_a", string(a)),
		slog.String("player_b", string(b)),
	)

	for _, p := range m.Players {
		e.sink.SendTo(p, model.Event{
			Type:      model.EventMatchFound,
			Timestamp: e.clock.Now(),
			Payload:   model.MatchFoundPayload{MatchID: m.ID, Opponent: m.Opponent(p)},
		})
	}
	return m, nil
}

// Submit records a player's move in their open match. The first move of
// a match starts the opponent's move timer; the second resolves the
// match and pushes a result to both participants.
func (e *Engine) Submit(ctx context.Context, playerID model.PlayerID, move model.Move) error {
	if !move.Valid() {
		return model.ErrInvalidMove
	}
	lm, err := e.lookup(playerID)
	if err != nil {
		return err
	}

	lm.mu.Lock()
	if lm.closed {
		lm.mu.Unlock()
		return model.ErrNotInMatch
	}
	if _, ok := lm.match.Moves[playerID]; ok {
		lm.mu.Unlock()
		return model.ErrAlreadyMoved
	}
	lm.match.Moves[playerID] = move
	if !lm.match.BothMoved() {
		lm.deadline = e.clock.Now().Add(e.cfg.MoveTimeout)
		lm.mu.Unlock()
		e.logger.Info("first move received",
			slog.String("match_id", string(lm.match.ID)),
			slog.String("player_id", string(playerID)),
		)
		return nil
	}
	lm.closed = true
	m := lm.match
	lm.mu.Unlock()

	e.resolve(ctx, m)
	return nil
}

// Forfeit abandons a player's open match, usually on disconnect.
// No-op if the player has no open match or it is already closing.
func (e *Engine) Forfeit(ctx context.Context, playerID model.PlayerID) {
	e.abandon(ctx, playerID, model.AbandonReasonDisconnect)
}

// SweepExpired abandons every open match whose move deadline has passed
// with only one move in. Called periodically by the server.
func (e *Engine) SweepExpired(ctx context.Context) {
	now := e.clock.Now()

	e.mu.Lock()
	live := make([]*liveMatch, 0, len(e.open))
	for _, lm := range e.open {
		live = append(live, lm)
	}
	e.mu.Unlock()

	for _, lm := range live {
		lm.mu.Lock()
		expired := !lm.closed && len(lm.match.Moves) == 1 &&
			!lm.deadline.IsZero() && now.After(lm.deadline)
		var laggard model.PlayerID
		if expired {
			lm.closed = true
			for _, p := range lm.match.Players {
				if _, ok := lm.match.Moves[p]; !ok {
					laggard = p
				}
			}
		}
		m := lm.match
		lm.mu.Unlock()

		if expired {
			e.close(ctx, m, laggard, model.AbandonReasonTimeout)
		}
	}
}

// InMatch reports whether the player has an open match.
func (e *Engine) InMatch(playerID model.PlayerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.byPlayer[playerID]
	return ok
}

// MatchFor returns the id of the player's open match, if any.
func (e *Engine) MatchFor(playerID model.PlayerID) (model.MatchID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.byPlayer[playerID]
	return id, ok
}

// Participants returns the players of an open match, if it exists.
func (e *Engine) Participants(id model.MatchID) ([2]model.PlayerID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lm, ok := e.open[id]
	if !ok {
		return [2]model.PlayerID{}, false
	}
	return lm.match.Players, true
}

// OpenMatches returns the number of matches currently open.
func (e *Engine) OpenMatches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.open)
}

func (e *Engine) lookup(playerID model.PlayerID) (*liveMatch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.byPlayer[playerID]
	if !ok {
		return nil, model.ErrNotInMatch
	}
	lm, ok := e.open[id]
	if !ok {
		return nil, model.ErrNotInMatch
	}
	return lm, nil
}

// OnMatchClosed registers a hook to run whenever a match closes.
// Not safe to call once the engine is handling moves.
func (e *Engine) OnMatchClosed(hook ClosedHook) {
	e.closedHooks = append(e.closedHooks, hook)
}

func (e *Engine) unregister(m *model.Match) {
	e.mu.Lock()
	delete(e.open, m.ID)
	delete(e.byPlayer, m.Players[0])
	delete(e.byPlayer, m.Players[1])
	e.mu.Unlock()

	for _, hook := range e.closedHooks {
		hook(m.ID)
	}
}

// abandon closes the match the player is in, with the given reason.
func (e *Engine) abandon(ctx context.Context, leaver model.PlayerID, reason model.AbandonReason) {
	lm, err := e.lookup(leaver)
	if err != nil {
		return
	}

	lm.mu.Lock()
	if lm.closed {
		lm.mu.Unlock()
		return
	}
	lm.closed = true
	m := lm.match
	lm.mu.Unlock()

	e.close(ctx, m, leaver, reason)
}

// close finishes an abandoned match: it archives it, applies the
// walkover policy, and notifies the remaining participant. Callers must
// already have marked the liveMatch closed.
func (e *Engine) close(ctx context.Context, m *model.Match, leaver model.PlayerID, reason model.AbandonReason) {
	e.unregister(m)

	remaining := m.Opponent(leaver)
	m.State = model.MatchStateAbandoned
	m.ResolvedAt = e.clock.Now()
	if err := e.storage.SaveMatch(ctx, m); err != nil {
		e.logger.Error("archiving abandoned match failed",
			slog.String("match_id", string(m.ID)),
			slog.String("error", err.Error()),
		)
	}

	e.logger.Info("match abandoned",
		slog.String("match_id", string(m.ID)),
		slog.String("leaver", string(leaver)),
		slog.String("reason", string(reason)),
	)

	if e.cfg.WalkoverWins {
		e.awardWalkover(ctx, m, remaining, leaver, reason)
		return
	}

	// A disconnected leaver has no connection left; the sink drops
	// the event for them.
	for _, p := range []model.PlayerID{remaining, leaver} {
		ratingNow := model.DefaultRating
		if identity, err := e.storage.GetIdentity(ctx, p); err == nil {
			ratingNow = identity.Rating
		}
		e.sink.SendTo(p, model.Event{
			Type:      model.EventMatchAbandoned,
			Timestamp: e.clock.Now(),
			Payload: model.MatchAbandonedPayload{
				MatchID: m.ID,
				Reason:  reason,
				Rating:  ratingNow,
			},
		})
	}
}

// awardWalkover applies a rated win for the remaining player and tells
// them via a regular result, with no move shown for the leaver.
func (e *Engine) awardWalkover(ctx context.Context, m *model.Match, winner, leaver model.PlayerID, reason model.AbandonReason) {
	preWinner, err := e.storage.GetIdentity(ctx, winner)
	if err != nil {
		e.logger.Error("walkover lookup failed",
			slog.String("match_id", string(m.ID)),
			slog.String("error", err.Error()),
		)
		return
	}
	newWinner, newLeaver, err := e.rating.Update(ctx, winner, model.OutcomeWin, leaver, model.OutcomeLose)
	if err != nil {
		e.logger.Error("walkover rating update failed",
			slog.String("match_id", string(m.ID)),
			slog.String("error", err.Error()),
		)
		return
	}

	leaderboard, err := e.rating.Snapshot(ctx, e.cfg.LeaderboardSize)
	if err != nil {
		e.logger.Error("leaderboard snapshot failed", slog.String("error", err.Error()))
	}

	e.sink.SendTo(winner, model.Event{
		Type:      model.EventGameResult,
		Timestamp: e.clock.Now(),
		Payload: model.GameResultPayload{
			MatchID:     m.ID,
			Move:        m.Moves[winner],
			Outcome:     model.OutcomeWin,
			RatingDelta: newWinner - preWinner.Rating,
			Rating:      newWinner,
			Leaderboard: leaderboard,
		},
	})
	e.sink.SendTo(leaver, model.Event{
		Type:      model.EventMatchAbandoned,
		Timestamp: e.clock.Now(),
		Payload: model.MatchAbandonedPayload{
			MatchID: m.ID,
			Reason:  reason,
			Rating:  newLeaver,
		},
	})
}

// resolve finishes a match in which both moves are in.
func (e *Engine) resolve(ctx context.Context, m *model.Match) {
	e.unregister(m)

	a, b := m.Players[0], m.Players[1]
	outcomeA, outcomeB := model.ResolveMoves(m.Moves[a], m.Moves[b])

	preA, errA := e.storage.GetIdentity(ctx, a)
	preB, errB := e.storage.GetIdentity(ctx, b)
	if errA != nil || errB != nil {
		e.logger.Error("resolving match failed",
			slog.String("match_id", string(m.ID)),
		)
		return
	}

	newA, newB, err := e.rating.Update(ctx, a, outcomeA, b, outcomeB)
	if err != nil {
		e.logger.Error("rating update failed",
			slog.String("match_id", string(m.ID)),
			slog.String("error", err.Error()),
		)
		// The match still resolved; fall back to unchanged ratings
		newA, newB = preA.Rating, preB.Rating
	}

	m.State = model.MatchStateResolved
	m.ResolvedAt = e.clock.Now()
	if err := e.storage.SaveMatch(ctx, m); err != nil {
		e.logger.Error("archiving resolved match failed",
			slog.String("match_id", string(m.ID)),
			slog.String("error", err.Error()),
		)
	}

	e.logger.Info("match resolved",
		slog.String("match_id", string(m.ID)),
		slog.String("outcome_a", string(outcomeA)),
		slog.String("outcome_b", string(outcomeB)),
	)

	leaderboard, err := e.rating.Snapshot(ctx, e.cfg.LeaderboardSize)
	if err != nil {
		e.logger.Error("leaderboard snapshot failed", slog.String("error", err.Error()))
	}

	e.send(a, m, m.Moves[a], m.Moves[b], outcomeA, newA-preA.Rating, newA, leaderboard)
	e.send(b, m, m.Moves[b], m.Moves[a], outcomeB, newB-preB.Rating, newB, leaderboard)
}

func (e *Engine) send(to model.PlayerID, m *model.Match, move, opponentMove model.Move, outcome model.Outcome, delta, ratingNow int, leaderboard []model.LeaderboardEntry) {
	e.sink.SendTo(to, model.Event{
		Type:      model.EventGameResult,
		Timestamp: e.clock.Now(),
		Payload: model.GameResultPayload{
			MatchID:     m.ID,
			Move:        move,
			Opponent:    opponentMove,
			Outcome:     outcome,
			RatingDelta: delta,
			Rating:      ratingNow,
			Leaderboard: leaderboard,
		},
	})
}
