package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second // deadline for a single frame write
	pongGrace = 2                // pongWait = pongGrace * heartbeat interval
)

// WSConn adapts a gorilla websocket connection to the hub's Conn
// interface. Writes are serialized with a mutex because the hub
// goroutine (updates, pings) and the handler (close) can both touch the
// socket.
type WSConn struct {
	mu       sync.Mutex
	ws       *websocket.Conn
	pongWait time.Duration
	closed   bool
}

// NewWSConn wraps ws and installs the pong handler that keeps the read
// deadline ahead of the heartbeat. The caller must run ReadLoop so pongs
// and client closes are consumed.
func NewWSConn(ws *websocket.Conn, heartbeat time.Duration) *WSConn {
	c := &WSConn{ws: ws, pongWait: pongGrace * heartbeat}
	_ = ws.SetReadDeadline(time.Now().Add(c.pongWait))
	ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	})
	return c
}

// Send writes one JSON frame with a bounded deadline.
func (c *WSConn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(msg)
}

// Ping writes a websocket ping control frame.
func (c *WSConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close shuts the underlying socket. Idempotent.
func (c *WSConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.ws.Close()
}

// ReadLoop consumes inbound frames until the connection dies. Clients
// send nothing but pong acknowledgements, so every payload is discarded;
// the loop exists to drive the pong handler and to notice closes and
// missed read deadlines. It returns once the connection is unusable.
func (c *WSConn) ReadLoop() {
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
