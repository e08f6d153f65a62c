package ws

import (
	"sync"
	"time"

	"termguess/internal/constants"
	"termguess/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Conn is the write side of a client connection. *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

type deadlineConn struct {
	conn *websocket.Conn
}

// NewConn wraps a websocket so that every write carries a deadline.
func NewConn(conn *websocket.Conn) Conn {
	return &deadlineConn{conn: conn}
}

func (c *deadlineConn) WriteJSON(v any) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(constants.WSWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *deadlineConn) Close() error {
	return c.conn.Close()
}

type client struct {
	id       string
	playerID string
	conn     Conn
	send     chan any
}

// Hub tracks live connections and which rooms they are attached to.
// A connection is live from Register until Unregister.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
		logger:  logger,
	}
}

// Register makes conn live for playerID and returns its connection id.
func (h *Hub) Register(playerID string, conn Conn) string {
	c := &client{
		id:       uuid.New().String(),
		playerID: playerID,
		conn:     conn,
		send:     make(chan any, constants.WSSendBuffer),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	go h.writePump(c)

	h.logger.Debug().Str("connection_id", c.id).Str("player_id", playerID).Msg("connection registered")
	return c.id
}

func (h *Hub) writePump(c *client) {
	failed := false
	for msg := range c.send {
		if failed {
			continue
		}
		if err := c.conn.WriteJSON(msg); err != nil {
			h.logger.Warn().Err(err).Str("connection_id", c.id).Msg("write failed, dropping connection")
			failed = true
			go h.Unregister(c.id)
		}
	}
	c.conn.Close()
}

// Unregister drops the connection from every room and closes it.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	for code, conns := range h.rooms {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.rooms, code)
		}
	}
	close(c.send)

	h.logger.Debug().Str("connection_id", connID).Str("player_id", c.playerID).Msg("connection unregistered")
}

// Owner returns the player a live connection belongs to.
func (h *Hub) Owner(connID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[connID]
	if !ok {
		return "", false
	}
	return c.playerID, true
}

func (h *Hub) IsLive(connID string) bool {
	_, ok := h.Owner(connID)
	return ok
}

// Attach subscribes a live connection to a room's notifications.
func (h *Hub) Attach(code, connID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[connID]; !ok {
		return domain.ErrConnectionNotFound
	}
	conns, ok := h.rooms[code]
	if !ok {
		conns = make(map[string]struct{})
		h.rooms[code] = conns
	}
	conns[connID] = struct{}{}
	return nil
}

// PlayerAttached reports whether any of the player's connections is
// attached to the room.
func (h *Hub) PlayerAttached(code, playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID := range h.rooms[code] {
		if c, ok := h.clients[connID]; ok && c.playerID == playerID {
			return true
		}
	}
	return false
}

// DetachPlayer removes all of the player's connections from the room.
func (h *Hub) DetachPlayer(code, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.rooms[code]
	for connID := range conns {
		if c, ok := h.clients[connID]; ok && c.playerID == playerID {
			delete(conns, connID)
		}
	}
	if len(conns) == 0 {
		delete(h.rooms, code)
	}
}

func (h *Hub) CloseRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.rooms, code)
}

// Broadcast queues the event for every connection attached to the room.
// Slow clients whose buffer is full miss the event.
func (h *Hub) Broadcast(code string, event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID := range h.rooms[code] {
		c, ok := h.clients[connID]
		if !ok {
			continue
		}
		select {
		case c.send <- event:
		default:
			h.logger.Warn().Str("connection_id", connID).Str("type", string(event.Type)).Msg("send buffer full, dropping event")
		}
	}
}

// Send queues a message for a single connection.
func (h *Hub) Send(connID string, v any) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	select {
	case c.send <- v:
		return true
	default:
		return false
	}
}
