package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/mcoot/rpsduel-go/internal/dependencies/clock"
	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/push"
)

// MatchDirectory is the slice of the match engine the relay needs to
// gate match-scoped chat on participation.
type MatchDirectory interface {
	MatchFor(playerID model.PlayerID) (model.MatchID, bool)
	Participants(id model.MatchID) ([2]model.PlayerID, bool)
}

// Config holds configuration for the chat relay
type Config struct {
	// HistorySize is how many messages are retained per scope
	HistorySize int
}

// DefaultConfig returns the default chat relay configuration
func DefaultConfig() Config {
	return Config{HistorySize: 100}
}

// Relay fans chat messages out to the members of a scope, in arrival
// order, and keeps a bounded per-scope history.
type Relay struct {
	matches MatchDirectory
	sink    push.Sink
	clock   clock.Clock
	logger  *slog.Logger
	cfg     Config

	mu      sync.Mutex
	history map[model.ChatScope][]model.ChatMessage
}

// New creates a new chat relay
func New(matches MatchDirectory, sink push.Sink, clk clock.Clock, cfg Config, logger *slog.Logger) *Relay {
	return &Relay{
		matches: matches,
		sink:    sink,
		clock:   clk,
		logger:  logger.With(slog.String("component", "chat")),
		cfg:     cfg,
		history: make(map[model.ChatScope][]model.ChatMessage),
	}
}

// Publish delivers a message to every member of the scope, sender
// included. Match scopes require the sender to be a participant of
// that match.
func (r *Relay) Publish(ctx context.Context, from model.PlayerID, scope model.ChatScope, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ErrEmptyMessage
	}

	var recipients []model.PlayerID
	if !scope.IsLobby() {
		id := scope.MatchID()
		current, ok := r.matches.MatchFor(from)
		if !ok || current != id {
			return model.ErrScopeNotJoined
		}
		players, ok := r.matches.Participants(id)
		if !ok {
			return model.ErrScopeNotJoined
		}
		recipients = players[:]
	}

	msg := model.ChatMessage{
		From:   from,
		Scope:  scope,
		Text:   text,
		SentAt: r.clock.Now(),
	}

	// Record and fan out under one lock so concurrent publishers are
	// observed in the same order by the history and every member.
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(msg)

	event := model.Event{Type: model.EventChat, Timestamp: msg.SentAt, Payload: msg}
	if scope.IsLobby() {
		r.sink.BroadcastLobby(event)
	} else {
		for _, p := range recipients {
			r.sink.SendTo(p, event)
		}
	}
	return nil
}

// History returns the retained messages for a scope, oldest first.
func (r *Relay) History(scope model.ChatScope) []model.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ChatMessage(nil), r.history[scope]...)
}

// DropScope discards the history of a scope, called when a match closes.
func (r *Relay) DropScope(scope model.ChatScope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.history, scope)
}

func (r *Relay) record(msg model.ChatMessage) {
	h := append(r.history[msg.Scope], msg)
	if len(h) > r.cfg.HistorySize {
		h = h[len(h)-r.cfg.HistorySize:]
	}
	r.history[msg.Scope] = h
}
