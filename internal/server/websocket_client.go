package server

import (
	"bytes"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single write to a slow peer.
const writeWait = 10 * time.Second

// WebSocketClient wraps a WebSocket connection carrying JSON messages.
type WebSocketClient struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes; replies and notifications share the socket
}

// NewWebSocketClient creates a client. A positive maxMessageSize caps the
// size of incoming messages.
func NewWebSocketClient(conn *websocket.Conn, maxMessageSize int64) *WebSocketClient {
	if maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}
	return &WebSocketClient{conn: conn}
}

// ReadMessage reads the next message, skipping blank ones.
func (c *WebSocketClient) ReadMessage() ([]byte, error) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if trimmed := bytes.TrimSpace(message); len(trimmed) > 0 {
			return trimmed, nil
		}
	}
}

// WriteJSON sends v as a text message.
func (c *WebSocketClient) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// Close closes the WebSocket connection.
func (c *WebSocketClient) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote address as a string.
func (c *WebSocketClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
