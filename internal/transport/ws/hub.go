package ws

import (
	"encoding/json"
	"sync"

	"mentorhub/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection represents one authenticated WebSocket connection
type Connection struct {
	ID       string
	Identity model.Identity
	Send     chan []byte

	// guarded by Hub.mu
	rooms  map[string]struct{}
	closed bool

	kickOnce sync.Once
	kicked   chan struct{}
}

// NewConnection creates a connection for identity with an outbound buffer of size buffer
func NewConnection(identity model.Identity, buffer int) *Connection {
	return &Connection{
		ID:       uuid.NewString(),
		Identity: identity,
		Send:     make(chan []byte, buffer),
		rooms:    make(map[string]struct{}),
		kicked:   make(chan struct{}),
	}
}

// Kicked is closed when the hub gave up on this connection
func (c *Connection) Kicked() <-chan struct{} {
	return c.kicked
}

func (c *Connection) kick() {
	c.kickOnce.Do(func() { close(c.kicked) })
}

// Hub tracks live connections two ways: by identity (personal channels) and by
// room (broadcast groups). It implements service.Broadcaster.
type Hub struct {
	users map[string]map[*Connection]struct{}
	rooms map[string]map[*Connection]struct{}

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		users: make(map[string]map[*Connection]struct{}),
		rooms: make(map[string]map[*Connection]struct{}),
	}
}

// Register adds a connection to its identity's personal channel
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	uid := conn.Identity.UserID
	if h.users[uid] == nil {
		h.users[uid] = make(map[*Connection]struct{})
	}
	h.users[uid][conn] = struct{}{}

	log.Info().Str("module", "ws.hub").Str("user_id", uid).Str("conn_id", conn.ID).
		Int("user_conns", len(h.users[uid])).Msg("connection registered")
}

// Unregister removes a connection everywhere, closes its Send channel and
// returns the rooms it was joined to. Safe to call more than once.
func (h *Hub) Unregister(conn *Connection) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn.closed {
		return nil
	}
	conn.closed = true

	uid := conn.Identity.UserID
	if set, ok := h.users[uid]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.users, uid)
		}
	}

	rooms := make([]string, 0, len(conn.rooms))
	for roomID := range conn.rooms {
		h.detachLocked(conn, roomID)
		rooms = append(rooms, roomID)
	}
	close(conn.Send)

	log.Info().Str("module", "ws.hub").Str("user_id", uid).Str("conn_id", conn.ID).
		Strs("rooms", rooms).Msg("connection unregistered")
	return rooms
}

// Join attaches conn to a room's broadcast group. It reports whether conn was
// already a member.
func (h *Hub) Join(conn *Connection, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn.closed {
		return false
	}
	if _, ok := conn.rooms[roomID]; ok {
		return true
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Connection]struct{})
	}
	h.rooms[roomID][conn] = struct{}{}
	conn.rooms[roomID] = struct{}{}
	return false
}

// Leave detaches conn from a room. It reports whether conn was a member.
func (h *Hub) Leave(conn *Connection, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := conn.rooms[roomID]; !ok {
		return false
	}
	h.detachLocked(conn, roomID)
	return true
}

func (h *Hub) detachLocked(conn *Connection, roomID string) {
	delete(conn.rooms, roomID)
	if members, ok := h.rooms[roomID]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// IsMember reports whether conn is joined to roomID
func (h *Hub) IsMember(conn *Connection, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := conn.rooms[roomID]
	return ok
}

// UserInRoom reports whether userID still has any connection joined to roomID
func (h *Hub) UserInRoom(userID, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.rooms[roomID] {
		if conn.Identity.UserID == userID {
			return true
		}
	}
	return false
}

// RoomMembers returns the distinct identities joined to roomID
func (h *Hub) RoomMembers(roomID string) []model.Identity {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]model.Identity, 0, 2)
	for conn := range h.rooms[roomID] {
		if _, ok := seen[conn.Identity.UserID]; ok {
			continue
		}
		seen[conn.Identity.UserID] = struct{}{}
		out = append(out, conn.Identity)
	}
	return out
}

// Online reports whether userID has a live connection on this process
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// SendTo delivers one event to a single connection
func (h *Hub) SendTo(conn *Connection, msgType string, payload interface{}) {
	data, err := encode(msgType, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "ws.hub").Str("type", msgType).Msg("encode failed")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.enqueueLocked(conn, data)
}

// BroadcastToRoom sends a message to every connection in a room (implements service.Broadcaster)
func (h *Hub) BroadcastToRoom(roomID string, msgType string, payload interface{}) {
	h.BroadcastToRoomExcept(roomID, "", msgType, payload)
}

// BroadcastToRoomExcept sends a message to a room, skipping connID (implements service.Broadcaster)
func (h *Hub) BroadcastToRoomExcept(roomID, connID string, msgType string, payload interface{}) {
	data, err := encode(msgType, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "ws.hub").Str("type", msgType).Msg("encode failed")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.rooms[roomID] {
		if conn.ID == connID {
			continue
		}
		h.enqueueLocked(conn, data)
	}
}

// SendToUser sends a message to every connection of an identity (implements service.Broadcaster)
func (h *Hub) SendToUser(userID string, msgType string, payload interface{}) int {
	data, err := encode(msgType, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "ws.hub").Str("type", msgType).Msg("encode failed")
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for conn := range h.users[userID] {
		if h.enqueueLocked(conn, data) {
			delivered++
		}
	}
	return delivered
}

// enqueueLocked must run with h.mu held (read or write) so Send cannot be
// closed underneath it. A full buffer gets the connection kicked rather than a
// silently dropped frame, which would break per-room ordering.
func (h *Hub) enqueueLocked(conn *Connection, data []byte) bool {
	if conn.closed {
		return false
	}
	select {
	case <-conn.kicked:
		return false
	default:
	}
	select {
	case conn.Send <- data:
		return true
	default:
		log.Warn().Str("module", "ws.hub").Str("conn_id", conn.ID).
			Str("user_id", conn.Identity.UserID).Msg("send buffer full, kicking connection")
		conn.kick()
		return false
	}
}

func encode(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Message{Type: msgType, Payload: raw})
}
