package chat

import (
	"errors"
	"fmt"
	"strconv"

	domain "github.com/example/chat-relay/domain/chat"
)

// Validation and policy errors surfaced by the registry and coordinator.
var (
	ErrInvalidArgument = errors.New("missing required field")
	ErrRoomExists      = errors.New("room already exists")
	ErrRoomNotFound    = errors.New("room not found")
	ErrBadPassword     = errors.New("wrong room password")
	ErrRoomFull        = errors.New("room is full")
)

// RoomView is the sanitized room representation returned to callers.
// It never carries the password itself, only its presence.
type RoomView struct {
	RoomID      string `json:"roomId"`
	OwnerID     string `json:"ownerId"`
	HasPassword bool   `json:"hasPassword"`
	MaxUsers    int    `json:"maxUsers"`
}

// ChatRequest carries the client-supplied fields of a chat action. The
// room and sender are taken from the session, never from the payload.
type ChatRequest struct {
	Type        string
	Content     string
	URL         string
	FileName    string
	FileType    string
	ClientMsgID string
}

// ParseMaxUsers interprets a client-supplied room capacity. Non-numeric
// or negative input means unlimited (0), matching the lenient parsing of
// the creation endpoint.
func ParseMaxUsers(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ErrorReply maps a join failure to the private system error message sent
// to the requesting connection. Invalid arguments are dropped silently and
// yield no reply. Policy failures are never broadcast to the room.
func ErrorReply(roomID string, err error) (domain.Message, bool) {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		content := fmt.Sprintf("room %s does not exist, create it before joining", roomID)
		return domain.NewSystemMessage(roomID, content, domain.SystemError), true
	case errors.Is(err, ErrBadPassword):
		return domain.NewSystemMessage(roomID, "wrong room password", domain.SystemError), true
	case errors.Is(err, ErrRoomFull):
		return domain.NewSystemMessage(roomID, "room is full, unable to join", domain.SystemError), true
	}
	return domain.Message{}, false
}

// Service request/response types for cross-module calls.

// CreateRoomRequest is the request for the create-room service.
type CreateRoomRequest struct {
	RoomID   string `json:"roomId"`
	OwnerID  string `json:"ownerId"`
	Password string `json:"password"`
	MaxUsers int    `json:"maxUsers"`
}

// CreateRoomResponse is the response for the create-room service.
type CreateRoomResponse struct {
	Room    RoomView `json:"room"`
	Created bool     `json:"created"`
	Reason  string   `json:"reason,omitempty"`
}

// GetRoomRequest is the request for the get-room service.
type GetRoomRequest struct {
	RoomID string `json:"roomId"`
}

// GetRoomResponse is the response for the get-room service.
type GetRoomResponse struct {
	Room  RoomView `json:"room"`
	Found bool     `json:"found"`
}

// CheckPasswordRequest is the request for the check-password service.
type CheckPasswordRequest struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password"`
}

// CheckPasswordResponse is the response for the check-password service.
type CheckPasswordResponse struct {
	Found bool `json:"found"`
	OK    bool `json:"ok"`
}
