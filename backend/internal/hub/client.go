package hub

import (
	"encoding/json"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// StatusRequester answers a client's request for a full status.
type StatusRequester interface {
	SendStatus(c *Client)
}

// Client represents a connected WebSocket client.
type Client struct {
	ID     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger golog.Logger
}

// NewClient creates a new Client attached to the hub.
func NewClient(hub *Hub, conn *websocket.Conn, logger golog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		ID:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: logger.With("client", id),
	}
}

// WritePump sends messages from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.logger.Debugw("write failed", "error", err)
			break
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// ReadPump reads client commands until the connection closes.
func (c *Client) ReadPump(status StatusRequester) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.logger.Warnw("bad client message", "error", err)
			continue
		}

		switch clientMsg.Type {
		case TypeRequestStatus:
			status.SendStatus(c)
		default:
			c.logger.Debugw("unknown client message", "type", clientMsg.Type)
		}
	}
}
