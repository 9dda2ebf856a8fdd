package chat

import (
	"fmt"
	"log"
	"time"

	domain "github.com/example/chat-relay/domain/chat"
	"github.com/example/chat-relay/events"
)

// Presence is the membership surface of the broadcast hub that the
// coordinator mutates and consults. Implementations must apply mutations
// synchronously so that capacity checks and online counts observe a
// consistent state.
type Presence interface {
	JoinRoomIfBelowCap(clientID, roomID string, max int) bool
	LeaveRoom(clientID string)
	RoomClientCount(roomID string) int
	InRoom(clientID, roomID string) bool
}

// Session is the per-connection protocol state. A session is either
// unjoined (RoomID empty) or joined to exactly one room. It is owned by
// the connection's read loop and must not be shared across goroutines.
type Session struct {
	ClientID string
	UserID   string
	RoomID   string
}

// Joined reports whether the session is currently in a room.
func (s *Session) Joined() bool {
	return s.RoomID != ""
}

// Join runs the join transition for a session. Checks run in order:
// existence, password, capacity. The capacity check and the membership
// move are a single hub operation, so concurrent joins cannot over-admit
// a room, and a failed join leaves the connection in the room it is in.
// On success the returned message is the private "joined" confirmation
// for the requester; the public join notification and the online count
// go out as events.
func (m *Module) Join(sess *Session, roomID, userID, password string) (domain.Message, error) {
	if roomID == "" || userID == "" {
		return domain.Message{}, ErrInvalidArgument
	}

	room, exists := m.registry.Get(roomID)
	if !exists {
		return domain.Message{}, ErrRoomNotFound
	}
	if !room.PasswordMatches(password) {
		return domain.Message{}, ErrBadPassword
	}

	prevRoom := sess.RoomID
	if !m.presence.JoinRoomIfBelowCap(sess.ClientID, roomID, room.MaxUsers) {
		return domain.Message{}, ErrRoomFull
	}

	// The hub has already moved the connection; the old room's members
	// still get a leave notification.
	if prevRoom != "" && prevRoom != roomID {
		m.notifyRoomLeft(prevRoom, sess.UserID)
	}

	sess.RoomID = roomID
	sess.UserID = userID

	joinNote := domain.NewSystemMessage(roomID,
		fmt.Sprintf("%s joined the room", userID), domain.SystemInfo)
	m.publishUserJoined(roomID, userID, joinNote)
	m.publishOnlineCount(roomID)

	confirmation := domain.NewSystemMessage(roomID,
		fmt.Sprintf("you joined room %s (owner: %s)", roomID, room.OwnerID),
		domain.SystemInfo)
	return confirmation, nil
}

// Chat handles a chat action from a session. Messages from unjoined
// sessions, sessions whose room vanished, or sessions the hub no longer
// tracks are dropped without an error, matching the minimal protocol:
// the sender gets no reply other than the broadcast echo.
func (m *Module) Chat(sess *Session, req ChatRequest) {
	if !sess.Joined() {
		return
	}
	if !m.registry.Exists(sess.RoomID) {
		return
	}
	if !m.presence.InRoom(sess.ClientID, sess.RoomID) {
		return
	}

	msgType := req.Type
	if msgType == "" {
		msgType = domain.TypeText
	}

	msg := domain.Message{
		ID:          domain.NewMessageID(),
		RoomID:      sess.RoomID,
		From:        sess.UserID,
		Type:        msgType,
		Content:     req.Content,
		URL:         req.URL,
		FileName:    req.FileName,
		FileType:    req.FileType,
		ClientMsgID: req.ClientMsgID,
		CreatedAt:   time.Now().UnixMilli(),
	}

	if m.eventBus == nil {
		log.Printf("[chat] Warning: eventBus not set, dropping message %s", msg.ID)
		return
	}
	event := events.MessageSentEvent{RoomID: msg.RoomID, Message: msg}
	if err := events.MessageSentV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[chat] Warning: failed to publish MessageSent for %s: %v", msg.ID, err)
	}
}

// Disconnect runs the terminal transition when a connection's transport
// closes. A joined session leaves its room and the remaining members are
// notified; an unjoined session goes away silently.
func (m *Module) Disconnect(sess *Session) {
	if !sess.Joined() {
		return
	}
	m.leaveCurrentRoom(sess)
	sess.RoomID = ""
}

// leaveCurrentRoom removes the session from its room and notifies the
// remaining members.
func (m *Module) leaveCurrentRoom(sess *Session) {
	roomID := sess.RoomID
	m.presence.LeaveRoom(sess.ClientID)
	m.notifyRoomLeft(roomID, sess.UserID)
}

// notifyRoomLeft publishes the leave notification and refreshed online
// count for a room the session no longer occupies. Nothing is sent once
// the room is gone from the registry.
func (m *Module) notifyRoomLeft(roomID, userID string) {
	if !m.registry.Exists(roomID) {
		return
	}

	if userID != "" {
		leaveNote := domain.NewSystemMessage(roomID,
			fmt.Sprintf("%s left the room", userID), domain.SystemInfo)
		m.publishUserLeft(roomID, userID, leaveNote)
	}
	m.publishOnlineCount(roomID)
}

func (m *Module) publishUserJoined(roomID, userID string, msg domain.Message) {
	if m.eventBus == nil {
		return
	}
	event := events.UserJoinedEvent{RoomID: roomID, UserID: userID, Message: msg}
	if err := events.UserJoinedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[chat] Warning: failed to publish UserJoined for room %s: %v", roomID, err)
	}
}

func (m *Module) publishUserLeft(roomID, userID string, msg domain.Message) {
	if m.eventBus == nil {
		return
	}
	event := events.UserLeftEvent{RoomID: roomID, UserID: userID, Message: msg}
	if err := events.UserLeftV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[chat] Warning: failed to publish UserLeft for room %s: %v", roomID, err)
	}
}

func (m *Module) publishOnlineCount(roomID string) {
	if m.eventBus == nil {
		return
	}
	count := m.presence.RoomClientCount(roomID)
	event := events.OnlineCountEvent{
		RoomID:      roomID,
		OnlineCount: count,
		Message:     domain.NewOnlineCountMessage(roomID, count),
	}
	if err := events.OnlineCountV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[chat] Warning: failed to publish OnlineCount for room %s: %v", roomID, err)
	}
}
