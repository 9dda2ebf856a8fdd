package chat

import (
	"sync"

	domain "github.com/example/chat-relay/domain/chat"
)

// RoomRegistry provides thread-safe storage for room metadata. Rooms are
// immutable after creation and live for the process lifetime; there is no
// update, delete or expiry path.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]domain.Room
}

// NewRoomRegistry creates an empty registry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]domain.Room),
	}
}

// Create registers a new room and returns its sanitized view.
// Fails with ErrInvalidArgument when roomID or ownerID is empty and with
// ErrRoomExists when the id is already taken.
func (r *RoomRegistry) Create(roomID, ownerID, password string, maxUsers int) (RoomView, error) {
	if roomID == "" || ownerID == "" {
		return RoomView{}, ErrInvalidArgument
	}
	if maxUsers < 0 {
		maxUsers = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomID]; exists {
		return RoomView{}, ErrRoomExists
	}

	room := domain.Room{
		ID:       roomID,
		OwnerID:  ownerID,
		Password: password,
		MaxUsers: maxUsers,
	}
	r.rooms[roomID] = room

	return viewOf(room), nil
}

// Get returns the full room metadata, including the password for policy
// checks. Callers outside the chat module only ever see RoomView.
func (r *RoomRegistry) Get(roomID string) (domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, exists := r.rooms[roomID]
	return room, exists
}

// View returns the sanitized view of a room.
func (r *RoomRegistry) View(roomID string) (RoomView, bool) {
	room, exists := r.Get(roomID)
	if !exists {
		return RoomView{}, false
	}
	return viewOf(room), true
}

// Exists reports whether a room is registered.
func (r *RoomRegistry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.rooms[roomID]
	return exists
}

// CheckPassword reports whether the supplied password grants access to
// the room: open rooms accept anything, protected rooms require a
// byte-exact match.
func (r *RoomRegistry) CheckPassword(roomID, supplied string) (found, ok bool) {
	room, exists := r.Get(roomID)
	if !exists {
		return false, false
	}
	return true, room.PasswordMatches(supplied)
}

func viewOf(room domain.Room) RoomView {
	return RoomView{
		RoomID:      room.ID,
		OwnerID:     room.OwnerID,
		HasPassword: room.HasPassword(),
		MaxUsers:    room.MaxUsers,
	}
}
