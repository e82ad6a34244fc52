package sync

import (
	"context"
	"net/url"
	gosync "sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/innominatus/graphview/errors"
)

// WebSocket timeout constants following Gorilla best practices
// See: https://github.com/gorilla/websocket/blob/master/examples/chat/client.go
const (
	// Time allowed to write a control message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer (1MB for graph data)
	maxMessageSize = 1024 * 1024
)

// Conn abstracts the stream connection for testability. The real
// implementation wraps gorilla/websocket; tests use a channel-backed fake.
type Conn interface {
	// ReadMessage blocks until the next text frame or a connection error.
	ReadMessage() ([]byte, error)
	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Dialer opens a stream connection to the given URL.
type Dialer func(ctx context.Context, wsURL string) (Conn, error)

// wsConn wraps a gorilla connection with read limits, pong-refreshed read
// deadlines, and a keepalive ping loop.
type wsConn struct {
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce gosync.Once // Defensive: prevents double-close panics
}

// DialWebSocket is the production Dialer. The bearer token travels as a
// query parameter because browser WebSocket clients cannot set headers, and
// the server reads it from the same place for every client kind.
func DialWebSocket(token string) Dialer {
	return func(ctx context.Context, wsURL string) (Conn, error) {
		u, err := url.Parse(wsURL)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid stream URL %q", wsURL)
		}
		if token != "" {
			q := u.Query()
			q.Set("token", token)
			u.RawQuery = q.Encode()
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			return nil, errors.Wrap(err, "stream dial failed")
		}

		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		wc := &wsConn{conn: conn, done: make(chan struct{})}
		go wc.keepalive()
		return wc, nil
	}
}

func (c *wsConn) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

// isExpectedClose reports whether a read error is an orderly shutdown that
// does not warrant a warning.
func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
