package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/services/auth"
	"github.com/mcoot/rpsduel-go/internal/services/chat"
	"github.com/mcoot/rpsduel-go/internal/services/match"
	"github.com/mcoot/rpsduel-go/internal/services/matchmaking"
)

// inboundMessage is the frame clients send.
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type playPayload struct {
	Move string `json:"move"`
}

type chatPayload struct {
	Scope string `json:"scope"`
	Text  string `json:"text"`
}

// Handler upgrades authenticated players to a websocket session and
// dispatches their messages to the game services.
type Handler struct {
	auth       *auth.Service
	matchmaker *matchmaking.Service
	engine     *match.Engine
	chat       *chat.Relay
	hub        *Hub
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewHandler creates a new websocket handler
func NewHandler(authSvc *auth.Service, matchmaker *matchmaking.Service, engine *match.Engine, chatRelay *chat.Relay, hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{
		auth:       authSvc,
		matchmaker: matchmaker,
		engine:     engine,
		chat:       chatRelay,
		hub:        hub,
		logger:     logger.With(slog.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from arbitrary origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	session, err := h.auth.Resolve(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the response
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(conn, session.PlayerID, session.Token, h.logger)
	h.hub.register(client)
	go client.writePump()

	h.logger.Info("player connected", slog.String("player_id", string(session.PlayerID)))

	h.replayLobbyHistory(client)
	h.readPump(r.Context(), client)
}

// replayLobbyHistory sends the retained lobby chat to a freshly
// connected client so they join mid-conversation.
func (h *Handler) replayLobbyHistory(c *Client) {
	for _, msg := range h.chat.History(model.ScopeLobby) {
		c.enqueue(model.Event{Type: model.EventChat, Timestamp: msg.SentAt, Payload: msg})
	}
}

// readPump consumes inbound frames until the connection drops. If this
// was still the player's current connection, the session is released,
// which forfeits any open match and clears any queue entry via the
// release hooks. A client superseded by a reconnect on the same session
// must not release it out from under its successor.
func (h *Handler) readPump(ctx context.Context, c *Client) {
	defer func() {
		current := h.hub.unregister(c)
		c.close()
		if current {
			h.auth.Release(c.token)
		}
		h.logger.Info("player disconnected",
			slog.String("player_id", string(c.playerID)),
			slog.Bool("superseded", !current),
		)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("unexpected close",
					slog.String("player_id", string(c.playerID)),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.sendError(c, "bad_message", "malformed message")
			continue
		}
		if err := h.dispatch(ctx, c, msg); err != nil {
			h.sendError(c, errorCode(err), err.Error())
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, c *Client, msg inboundMessage) error {
	switch msg.Type {
	case "enqueue":
		return h.matchmaker.Enqueue(ctx, c.playerID)
	case "cancel":
		h.matchmaker.Cancel(c.playerID)
		return nil
	case "play":
		var p playPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return model.ErrInvalidMove
		}
		move, err := model.ParseMove(p.Move)
		if err != nil {
			return err
		}
		return h.engine.Submit(ctx, c.playerID, move)
	case "chat":
		var p chatPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return model.ErrEmptyMessage
		}
		scope, err := h.resolveScope(c.playerID, p.Scope)
		if err != nil {
			return err
		}
		return h.chat.Publish(ctx, c.playerID, scope, p.Text)
	default:
		return errUnknownType
	}
}

// resolveScope maps the client's scope name onto a concrete chat scope.
// "match" means the sender's current match.
func (h *Handler) resolveScope(playerID model.PlayerID, name string) (model.ChatScope, error) {
	switch name {
	case "", "lobby":
		return model.ScopeLobby, nil
	case "match":
		id, ok := h.engine.MatchFor(playerID)
		if !ok {
			return "", model.ErrScopeNotJoined
		}
		return model.MatchScope(id), nil
	default:
		return "", model.ErrScopeNotJoined
	}
}

func (h *Handler) sendError(c *Client, code, message string) {
	c.enqueue(model.Event{
		Type:      model.EventError,
		Timestamp: time.Now(),
		Payload:   model.ErrorPayload{Code: code, Message: message},
	})
}

var errUnknownType = errors.New("unknown message type")

// errorCode maps service errors onto stable wire codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, model.ErrAlreadyQueued):
		return "already_queued"
	case errors.Is(err, model.ErrAlreadyInMatch):
		return "already_in_match"
	case errors.Is(err, model.ErrNotInMatch):
		return "not_in_match"
	case errors.Is(err, model.ErrAlreadyMoved):
		return "already_moved"
	case errors.Is(err, model.ErrInvalidMove):
		return "invalid_move"
	case errors.Is(err, model.ErrScopeNotJoined):
		return "scope_not_joined"
	case errors.Is(err, model.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, errUnknownType):
		return "unknown_type"
	default:
		return "internal_error"
	}
}
