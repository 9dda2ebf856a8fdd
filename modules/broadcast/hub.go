package broadcast

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the transport a client is written to. *websocket.Conn
// satisfies it; tests substitute a recorder.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents one connected WebSocket client. Writes are
// serialized through the client's mutex because the read loop (private
// replies) and the event consumers (broadcasts) write concurrently.
type Client struct {
	ID   string
	conn Conn
	mu   sync.Mutex
}

// NewClient wraps a transport connection.
func NewClient(id string, conn Conn) *Client {
	return &Client{ID: id, conn: conn}
}

// Send writes raw bytes as one text frame.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// SendJSON marshals payload and writes it as one text frame.
func (c *Client) SendJSON(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.Send(data)
}

// Hub is the connection registry and broadcast engine: clientID → client
// and roomID → set of clientIDs. All mutations and broadcast iteration
// run under one RWMutex, so a fan-out always observes either the full
// pre- or post-mutation membership, never a partial one. Mutations apply
// synchronously in the caller's goroutine; the join/leave transitions of
// the chat coordinator rely on that for capacity checks and counts.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]bool),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("[broadcast] Client %s registered (total: %d)", client.ID, len(h.clients))
}

// Unregister removes a client and its room membership, if any.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[clientID]; !ok {
		return
	}
	h.removeFromRoomLocked(clientID)
	delete(h.clients, clientID)
	log.Printf("[broadcast] Client %s unregistered (total: %d)", clientID, len(h.clients))
}

// JoinRoom records a client as a member of a room, leaving any previous
// room first. A connection belongs to at most one room.
func (h *Hub) JoinRoom(clientID, roomID string) {
	h.JoinRoomIfBelowCap(clientID, roomID, 0)
}

// JoinRoomIfBelowCap checks a room's occupancy against max and, when
// below it, moves the client into the room, leaving any previous room
// first. max <= 0 means unlimited; a client already in the room does not
// count against the seat it occupies. Check and mutation share one
// critical section, so concurrent joins can never over-admit a room.
func (h *Hub) JoinRoomIfBelowCap(clientID, roomID string, max int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[clientID]; !ok {
		return false
	}

	if max > 0 {
		count := len(h.rooms[roomID])
		if h.rooms[roomID][clientID] {
			count--
		}
		if count >= max {
			return false
		}
	}

	h.removeFromRoomLocked(clientID)

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][clientID] = true
	return true
}

// LeaveRoom removes a client from its current room. A no-op when the
// client is not in any room.
func (h *Hub) LeaveRoom(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(clientID)
}

// removeFromRoomLocked drops the client's membership record. Empty room
// sets are deleted so RoomClientCount never counts ghosts. Caller holds
// the write lock.
func (h *Hub) removeFromRoomLocked(clientID string) {
	for roomID, members := range h.rooms {
		if members[clientID] {
			delete(members, clientID)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
			return
		}
	}
}

// InRoom reports whether a client is currently recorded in a room. The
// chat coordinator uses it to authorize chat actions.
func (h *Hub) InRoom(clientID, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[roomID][clientID]
}

// RoomClientCount returns the number of clients in a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers payload to every client currently in the room.
// Delivery is fire-and-forget per connection: a failed write (closed or
// broken transport) is logged and skipped, never pruned here and never
// surfaced to the caller. Pruning happens on the disconnect path.
func (h *Hub) Broadcast(roomID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[broadcast] Failed to marshal message for room %s: %v", roomID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for clientID := range h.rooms[roomID] {
		client, ok := h.clients[clientID]
		if !ok {
			continue
		}
		if err := client.Send(data); err != nil {
			log.Printf("[broadcast] Failed to send to client %s: %v", clientID, err)
		}
	}
}

// CloseAll closes every connection and clears the hub. Used at shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]bool)
}
