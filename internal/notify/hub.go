// Package notify pushes realtime events to connected administrators over websockets.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"adeptify/internal/auth"
	"adeptify/internal/events"
	"adeptify/internal/metrics"
	"adeptify/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16

	// GlobalRoom is joined by every client.
	GlobalRoom = "global"

	// TypeSessionsRevoked tells a client its sessions were ended server side.
	TypeSessionsRevoked = "sessions_revoked"
	// TypeActivity carries a persisted activity entry.
	TypeActivity = "activity"
)

// Message is the JSON frame sent to clients.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// UserRoom names the room of a single user.
func UserRoom(id uuid.UUID) string { return "user-" + id.String() }

// CentreRoom names the room shared by everyone attached to a centre.
func CentreRoom(centreID string) string { return "centre-" + centreID }

// RoomsFor lists the rooms a client with this identity joins.
func RoomsFor(id auth.Identity) []string {
	rooms := []string{UserRoom(id.ID)}
	if id.CentreID != "" {
		rooms = append(rooms, CentreRoom(id.CentreID))
	}
	if id.CursID != "" {
		rooms = append(rooms, "curs-"+id.CursID)
	}
	return append(rooms, GlobalRoom)
}

// Hub tracks connected clients by room.
type Hub struct {
	logger *zap.Logger

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger.Named("ws"),
		rooms:  make(map[string]map[*client]struct{}),
	}
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	identity  auth.Identity
	sessionID uuid.UUID
	rooms     []string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// Serve registers conn for id, opened with session sessionID, and blocks
// until the connection ends.
func (h *Hub) Serve(conn *websocket.Conn, id auth.Identity, sessionID uuid.UUID) {
	c := &client{
		hub:       h,
		conn:      conn,
		identity:  id,
		sessionID: sessionID,
		rooms:     RoomsFor(id),
		send:      make(chan []byte, sendBuffer),
	}
	h.register(c)
	go c.writePump()
	c.readPump()
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	for _, room := range c.rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*client]struct{})
			h.rooms[room] = members
		}
		members[c] = struct{}{}
	}
	h.mu.Unlock()

	metrics.IncrementConnections()
	h.logger.Debug("client connected", zap.String("user_id", c.identity.ID.String()))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	removed := false
	for _, room := range c.rooms {
		members, ok := h.rooms[room]
		if !ok {
			continue
		}
		if _, ok := members[c]; ok {
			removed = true
			delete(members, c)
		}
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()

	if removed {
		metrics.DecrementConnections()
		h.logger.Debug("client disconnected", zap.String("user_id", c.identity.ID.String()))
	}
}

func (h *Hub) members(room string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		out = append(out, c)
	}
	return out
}

// Count returns the number of clients in room.
func (h *Hub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast sends msg to every client in room and returns how many were reached.
// Clients whose buffers are full are disconnected.
func (h *Hub) Broadcast(room string, msg Message) int {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", zap.Error(err))
		return 0
	}

	sent := 0
	for _, c := range h.members(room) {
		if c.enqueue(payload) {
			sent++
			continue
		}
		h.unregister(c)
		c.close()
	}
	return sent
}

// SessionsRevoked notifies the user's sockets and disconnects them.
func (h *Hub) SessionsRevoked(userID uuid.UUID, reason string) {
	h.revoke(userID, reason, func(*client) bool { return true })
}

// SessionEnded disconnects only the sockets opened with sessionID.
func (h *Hub) SessionEnded(userID, sessionID uuid.UUID) {
	h.revoke(userID, "logout", func(c *client) bool { return c.sessionID == sessionID })
}

func (h *Hub) revoke(userID uuid.UUID, reason string, match func(*client) bool) {
	payload, err := json.Marshal(Message{
		Type:      TypeSessionsRevoked,
		Data:      map[string]string{"reason": reason},
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("marshal message", zap.Error(err))
		return
	}
	for _, c := range h.members(UserRoom(userID)) {
		if !match(c) {
			continue
		}
		c.enqueue(payload)
		h.unregister(c)
		c.close()
	}
}

// ActivityFeed returns a publisher that pushes persisted activity to the
// centre room of the entry. Entries without a centre are not pushed.
func (h *Hub) ActivityFeed() events.Publisher {
	return activityFeed{hub: h}
}

type activityFeed struct {
	hub *Hub
}

func (f activityFeed) PublishActivity(_ context.Context, entry model.ActivityLog) error {
	if entry.CentreID == nil || *entry.CentreID == "" {
		return nil
	}
	f.hub.Broadcast(CentreRoom(*entry.CentreID), Message{
		Type:      TypeActivity,
		Data:      events.NewActivityEvent(entry),
		Timestamp: entry.CreatedAt.UTC(),
	})
	return nil
}

// Close is a no-op; the hub's own Close ends the connections.
func (activityFeed) Close() error { return nil }

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	all := make(map[*client]struct{})
	for _, members := range h.rooms {
		for c := range members {
			all[c] = struct{}{}
		}
	}
	h.mu.Unlock()

	for c := range all {
		h.unregister(c)
		c.close()
	}
}

func (c *client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close stops the write pump after it drains queued messages.
func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("read failed", zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
