package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn serializes writes to a gorilla connection. Broadcasts and the
// connection's own read-loop replies may write concurrently, and gorilla
// permits only one writer at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// WriteControl sends a control frame. Control writes are allowed concurrently
// with data writes by gorilla, but serializing them too keeps close frames
// ordered after the last data frame.
func (c *wsConn) WriteControl(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(messageType, data, closeDeadline())
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func closeDeadline() time.Time {
	return time.Now().Add(5 * time.Second)
}

