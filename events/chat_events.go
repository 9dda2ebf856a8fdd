package events

import (
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/chat-relay/domain/chat"
)

// MessageSentEvent is emitted when a joined user posts a chat message.
// The broadcast module fans the message out to the room (including the
// sender, which acknowledges the sender's pending bubble); the history
// module appends it to the durable log.
type MessageSentEvent struct {
	RoomID  string         `json:"room_id"`
	Message domain.Message `json:"message"`
}

// UserJoinedEvent is emitted after a connection successfully joins a
// room. Message is the public "X joined the room" system notification.
type UserJoinedEvent struct {
	RoomID  string         `json:"room_id"`
	UserID  string         `json:"user_id"`
	Message domain.Message `json:"message"`
}

// UserLeftEvent is emitted when a joined connection leaves a room,
// either by switching rooms or by disconnecting.
type UserLeftEvent struct {
	RoomID  string         `json:"room_id"`
	UserID  string         `json:"user_id"`
	Message domain.Message `json:"message"`
}

// OnlineCountEvent is emitted after every membership change of a room.
// The carried message is broadcast-only and never persisted.
type OnlineCountEvent struct {
	RoomID      string         `json:"room_id"`
	OnlineCount int            `json:"online_count"`
	Message     domain.Message `json:"message"`
}

// RoomCreatedEvent is emitted when a new room is registered.
type RoomCreatedEvent struct {
	RoomID    string `json:"room_id"`
	OwnerID   string `json:"owner_id"`
	MaxUsers  int    `json:"max_users"`
	Protected bool   `json:"protected"`
}

// Event definitions for the chat domain.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"chat",
		"MessageSent",
		"v1",
	)

	UserJoinedV1 = helper.EventDefinition[UserJoinedEvent](
		"chat",
		"UserJoined",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[UserLeftEvent](
		"chat",
		"UserLeft",
		"v1",
	)

	OnlineCountV1 = helper.EventDefinition[OnlineCountEvent](
		"chat",
		"OnlineCount",
		"v1",
	)

	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"chat",
		"RoomCreated",
		"v1",
	)
)
