package chat

import (
	"math/rand/v2"
	"strconv"
	"time"
)

// Message types carried on the wire.
const (
	TypeText   = "text"
	TypeImage  = "image"
	TypeAudio  = "audio"
	TypeVideo  = "video"
	TypeFile   = "file"
	TypeSystem = "system"
)

// System message subtypes.
const (
	SystemInfo        = "info"
	SystemError       = "error"
	SystemOnlineCount = "onlineCount"
)

// SystemSender is the sender id used for server-generated messages.
const SystemSender = "system"

// Room holds the metadata the registry keeps per room. The password is
// never serialized; views expose only its presence.
type Room struct {
	ID       string
	OwnerID  string
	Password string
	MaxUsers int // 0 = unlimited
}

// HasPassword reports whether joining the room requires a password.
func (r Room) HasPassword() bool {
	return r.Password != ""
}

// PasswordMatches checks a supplied password against the room's. Open
// rooms accept anything; protected rooms require a byte-exact match.
func (r Room) PasswordMatches(supplied string) bool {
	return r.Password == "" || r.Password == supplied
}

// Message is the single wire format for everything the relay sends to a
// client: chat messages, attachment messages and synthetic system
// notifications. Field names match the browser client's expectations.
type Message struct {
	ID          string `json:"id"`
	RoomID      string `json:"roomId"`
	From        string `json:"from"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	URL         string `json:"url,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	FileType    string `json:"fileType,omitempty"`
	ClientMsgID string `json:"clientMsgId,omitempty"`
	SystemType  string `json:"systemType,omitempty"`
	OnlineCount int    `json:"onlineCount,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

// NewMessageID generates a message id from the creation time plus a
// random suffix. IDs are unique and roughly time-ordered; strict ordering
// is not guaranteed and nothing may rely on it.
func NewMessageID() string {
	const suffixLen = 6
	const charset = "0123456789abcdefghijklmnopqrstuvwxyz"

	b := make([]byte, suffixLen)
	for i := range b {
		b[i] = charset[rand.IntN(len(charset))]
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + string(b)
}

// NewSystemMessage builds a transient system notification for a room.
func NewSystemMessage(roomID, content, systemType string) Message {
	return Message{
		ID:         NewMessageID(),
		RoomID:     roomID,
		From:       SystemSender,
		Type:       TypeSystem,
		Content:    content,
		SystemType: systemType,
		CreatedAt:  time.Now().UnixMilli(),
	}
}

// NewOnlineCountMessage builds the presence-count system message that is
// broadcast after every membership change. It is never persisted.
func NewOnlineCountMessage(roomID string, count int) Message {
	msg := NewSystemMessage(roomID, "", SystemOnlineCount)
	msg.OnlineCount = count
	return msg
}
