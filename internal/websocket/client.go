package websocket

import (
	"encoding/json"
	"time"

	"vlm-search-agent/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Client is a middleman between the websocket connection and the question
// loop running in the handler goroutine.
type Client struct {
	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	done   chan struct{}
	logger logger.ILogger
}

func NewClient(conn *websocket.Conn, log logger.ILogger) *Client {
	return &Client{
		Conn:   conn,
		Send:   make(chan []byte, 256),
		done:   make(chan struct{}),
		logger: log,
	}
}

// SendJSON queues v for the writer. It drops the message once the writer has
// stopped.
func (c *Client) SendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("websocket", "marshal message", map[string]interface{}{"error": err.Error()})
		return
	}
	select {
	case c.Send <- data:
	case <-c.done:
	}
}

// readPump delivers incoming text frames to out and closes it when the peer
// goes away. onClose runs once the read side is finished.
func (c *Client) readPump(out chan<- []byte, onClose func()) {
	defer func() {
		close(out)
		onClose()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket", "unexpected close", map[string]interface{}{"error": err.Error()})
			}
			return
		}
		select {
		case out <- message:
		case <-c.done:
			return
		}
	}
}

// writePump pumps queued messages to the websocket connection and keeps it
// alive with pings. It returns after Send is closed or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The handler closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Warn("websocket", "ping failed", map[string]interface{}{"error": err.Error()})
				return
			}
		}
	}
}
