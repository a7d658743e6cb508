package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/rpsduel-go/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024

	sendBuffer = 32
)

// wireEvent is the outbound frame sent to clients.
type wireEvent struct {
	Type      model.EventType `json:"type"`
	Timestamp time.Time       `json:"ts"`
	Payload   any             `json:"payload,omitempty"`
}

// Client is one player's websocket connection.
type Client struct {
	conn     *websocket.Conn
	playerID model.PlayerID
	token    string
	logger   *slog.Logger

	send      chan model.Event
	closeOnce sync.Once
	done      chan struct{}
}

func newClient(conn *websocket.Conn, playerID model.PlayerID, token string, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		playerID: playerID,
		token:    token,
		logger:   logger,
		send:     make(chan model.Event, sendBuffer),
		done:     make(chan struct{}),
	}
}

// enqueue queues an event for delivery. A client that cannot keep up
// loses the event rather than blocking the sender.
func (c *Client) enqueue(event model.Event) {
	select {
	case c.send <- event:
	case <-c.done:
	default:
		c.logger.Warn("send buffer full, dropping event",
			slog.String("player_id", string(c.playerID)),
			slog.String("type", string(event.Type)),
		)
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump drains the send channel onto the connection and keeps the
// connection alive with pings. One per connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			frame := wireEvent{Type: event.Type, Timestamp: event.Timestamp, Payload: event.Payload}
			payload, err := json.Marshal(frame)
			if err != nil {
				c.logger.Error("marshalling event failed", slog.String("error", err.Error()))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
