package realtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from the peer
	maxMessageSize = 64 * 1024

	handshakeTimeout = 10 * time.Second
)

// Conn is one duplex connection to a realtime endpoint. Reads must come from
// a single goroutine; writes are serialized internally.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v interface{}) error
	WriteText(s string) error
	Close() error
}

// Dialer opens realtime connections. Controllers depend on this interface so
// tests can substitute an in-memory transport.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

type wsConn struct {
	conn *websocket.Conn

	mu sync.Mutex
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) WriteText(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(s))
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// WebsocketDialer dials with gorilla/websocket. It shares the HTTP client's
// cookie jar so the session cookie reaches the realtime endpoints.
type WebsocketDialer struct {
	Jar http.CookieJar
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		Jar:              d.Jar,
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	conn.SetReadLimit(maxMessageSize)
	return &wsConn{conn: conn}, nil
}
