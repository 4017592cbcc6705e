package realtime

import (
	"sync"
	"time"

	"tire-shop/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	// SendBuffer is the number of frames a connection may have queued.
	SendBuffer = 32
)

// Client is one socket connection. Only writePump writes to conn.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	user *domain.User

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(id string, hub *Hub, conn *websocket.Conn, user *domain.User) *Client {
	return &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		user: user,
		send: make(chan []byte, SendBuffer),
	}
}

// enqueue never blocks; false means the buffer is full or the client is gone.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) emit(event string, data any) {
	msg, err := encodeFrame(event, data)
	if err != nil {
		c.hub.logger.Error("Failed to encode socket frame", zap.String("event", event), zap.Error(err))
		return
	}
	if !c.enqueue(msg) {
		c.hub.unregister(c)
	}
}

func (c *Client) isAdmin() bool {
	return c.user != nil && c.user.Role == domain.RoleAdmin
}

func (c *Client) readPump(dispatch func(*Client, Frame)) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.hub.logger.Debug("Socket read failed", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		dispatch(c, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
