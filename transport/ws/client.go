package ws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/domain/event"
)

// Config groups the per-connection WebSocket tunables.
type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// Client owns one WebSocket connection. The read pump feeds decoded
// commands to the dispatcher in arrival order; the write pump drains the
// bounded send queue. Consume makes the client an event sink for fan-out:
// it never blocks, a full queue drops the frame.
type Client struct {
	ID     string
	conn   *websocket.Conn
	send   chan []byte
	log    *slog.Logger
	config Config
}

func NewClient(id string, conn *websocket.Conn, log *slog.Logger, config Config) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		send:   make(chan []byte, config.SendBuffer),
		log:    log,
		config: config,
	}
}

// Consume serializes the event and queues it for the write pump.
// Slow consumers lose frames instead of stalling fan-out.
func (c *Client) Consume(_ context.Context, e event.Event) error {
	data, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.log.Debug("Send queue full, dropping event", "conn_id", c.ID, "event", e.EventName())
		return nil
	}
}

// ReadPump reads frames until the connection dies, decoding each into a
// command for the handler. Malformed frames are dropped without answering
// the sender. onClose runs exactly once, after the last frame.
func (c *Client) ReadPump(handler func(c *Client, data []byte), onClose func(c *Client)) {
	defer func() {
		onClose(c)
		if err := c.conn.Close(); err != nil {
			c.log.Debug("Failed to close connection", "conn_id", c.ID, "error", err)
		}
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug(fmt.Sprintf("Connection closed abruptly : %v", err), "conn_id", c.ID)
			}
			return
		}
		handler(c, data)
	}
}

// WritePump drains the send queue and keeps the connection alive with
// periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.log.Debug("Failed to close connection", "conn_id", c.ID, "error", err)
		}
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
