package bridge

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Socket is the minimal duplex connection surface the bridge needs. Both
// transports (telephony media stream, engine event stream) satisfy it through
// wsConn; tests substitute in-memory fakes.
type Socket interface {
	WriteJSON(v any) error
	ReadMessage() ([]byte, error)
	Close() error
	IsOpen() bool
}

// wsConn serializes writes to a gorilla websocket connection and tracks its
// open state so the retry-send helper can distinguish "not open yet/anymore"
// from a hard write error.
type wsConn struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewSocket(conn *websocket.Conn) Socket {
	return &wsConn{conn: conn}
}

var errSocketClosed = fmt.Errorf("socket is not open")

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errSocketClosed
	}
	if err := c.conn.WriteJSON(v); err != nil {
		c.closed = true
		return err
	}
	return nil
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
	}
	return data, err
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *wsConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}
