package ws

import (
	"log/slog"
	"sync"

	"github.com/mcoot/rpsduel-go/internal/model"
)

// Hub tracks the active client connections and fans pushed events out
// to them. It is the process's push.Sink.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[model.PlayerID]*Client
}

// NewHub creates a new hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With(slog.String("component", "ws")),
		clients: make(map[model.PlayerID]*Client),
	}
}

// register attaches a client, superseding any previous connection for
// the same player. The superseded connection is closed.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	prev := h.clients[c.playerID]
	h.clients[c.playerID] = c
	h.mu.Unlock()

	if prev != nil {
		prev.close()
		h.logger.Info("connection superseded", slog.String("player_id", string(c.playerID)))
	}
}

// unregister detaches a client if it is still the player's current
// connection, and reports whether it was. A superseded client never
// unbinds its successor.
func (h *Hub) unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.playerID] == c {
		delete(h.clients, c.playerID)
		return true
	}
	return false
}

// SendTo delivers an event to the player's connection, if any.
// Events for offline players are dropped.
func (h *Hub) SendTo(playerID model.PlayerID, event model.Event) {
	h.mu.RLock()
	c := h.clients[playerID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	c.enqueue(event)
}

// BroadcastLobby delivers an event to every connected player.
func (h *Hub) BroadcastLobby(event model.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.enqueue(event)
	}
}

// Disconnect closes the player's current connection, if any. Used when
// a session is displaced by a newer login.
func (h *Hub) Disconnect(playerID model.PlayerID) {
	h.mu.RLock()
	c := h.clients[playerID]
	h.mu.RUnlock()
	if c != nil {
		c.close()
	}
}

// Drain closes every active connection. Each client's read loop then
// releases its session, so open matches are settled before shutdown.
func (h *Hub) Drain() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
	if len(clients) > 0 {
		h.logger.Info("hub drained", slog.Int("connections", len(clients)))
	}
}

// Connected returns the number of active connections.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
