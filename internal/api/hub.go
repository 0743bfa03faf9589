package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MJE43/casino-engine/internal/logger"
)

// CloseReason says why the hub dropped a connection.
type CloseReason string

const (
	ReasonWriteError CloseReason = "write_error"
	ReasonPingError  CloseReason = "ping_error"
	ReasonReadError  CloseReason = "read_error"
	ReasonShutdown   CloseReason = "server_shutdown"
	ReasonBufferFull CloseReason = "buffer_full"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Event is one message on the state feed.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	EventState    = "state"
	EventAutoplay = "autoplay"
)

// Hub fans events out to every connected websocket client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Connection]struct{}
	closed  bool
}

// Connection is one websocket client.
type Connection struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	hub       *Hub
	closeOnce sync.Once
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Connection]struct{})}
}

// Register starts serving conn. first, if non-nil, is queued before any
// broadcast.
func (h *Hub) Register(conn *websocket.Conn, first []byte) *Connection {
	c := &Connection{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		hub:  h,
	}
	if first != nil {
		c.send <- first
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.closeWithReason(ReasonShutdown, nil)
		return c
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
	return c
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish encodes an event and broadcasts it.
func (h *Hub) Publish(eventType string, data interface{}) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		logger.Error(context.Background()).Err(err).Str("event", eventType).Msg("encode event")
		return
	}
	h.Broadcast(msg)
}

// Broadcast queues message on every client. Clients whose buffer is
// full are dropped.
func (h *Hub) Broadcast(message []byte) {
	h.mu.RLock()
	var slow []*Connection
	for c := range h.clients {
		select {
		case c.send <- message:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(c)
		c.closeWithReason(ReasonBufferFull, nil)
	}
}

// Shutdown closes every connection and rejects new ones.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*Connection]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.closeWithReason(ReasonShutdown, nil)
	}
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (c *Connection) closeWithReason(r CloseReason, err error) {
	c.closeOnce.Do(func() {
		ev := logger.Debug(context.Background())
		if err != nil {
			ev = logger.Warn(context.Background()).Err(err)
		}
		ev.Str("reason", string(r)).Msg("ws connection closed")
		close(c.done)
		c.conn.Close()
	})
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.unregister(c)
				c.closeWithReason(ReasonWriteError, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.unregister(c)
				c.closeWithReason(ReasonPingError, err)
				return
			}
		}
	}
}

// readPump only services control frames; the feed is one-way.
func (c *Connection) readPump() {
	var readErr error
	defer func() {
		c.hub.unregister(c)
		c.closeWithReason(ReasonReadError, readErr)
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				readErr = err
			}
			return
		}
	}
}
