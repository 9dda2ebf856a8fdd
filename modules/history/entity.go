package history

import (
	domain "github.com/example/chat-relay/domain/chat"
)

// Record is one persisted chat message. Seq is the autoincrement
// insertion order, used to break ties between messages that share a
// createdAt millisecond.
type Record struct {
	Seq         int64  `gorm:"primarykey;autoIncrement"`
	MessageID   string `gorm:"size:32;uniqueIndex;not null"`
	RoomID      string `gorm:"size:100;index:idx_room_created,priority:1;not null"`
	Sender      string `gorm:"size:100"`
	Type        string `gorm:"size:20;not null"`
	Content     string `gorm:"size:4000"`
	URL         string `gorm:"size:500"`
	FileName    string `gorm:"size:255"`
	FileType    string `gorm:"size:100"`
	ClientMsgID string `gorm:"size:64"`
	CreatedAt   int64  `gorm:"index:idx_room_created,priority:2;not null"`
}

// TableName returns the table name for Record model.
func (Record) TableName() string {
	return "messages"
}

func recordFromMessage(msg domain.Message) Record {
	return Record{
		MessageID:   msg.ID,
		RoomID:      msg.RoomID,
		Sender:      msg.From,
		Type:        msg.Type,
		Content:     msg.Content,
		URL:         msg.URL,
		FileName:    msg.FileName,
		FileType:    msg.FileType,
		ClientMsgID: msg.ClientMsgID,
		CreatedAt:   msg.CreatedAt,
	}
}

func (r Record) toMessage() domain.Message {
	return domain.Message{
		ID:          r.MessageID,
		RoomID:      r.RoomID,
		From:        r.Sender,
		Type:        r.Type,
		Content:     r.Content,
		URL:         r.URL,
		FileName:    r.FileName,
		FileType:    r.FileType,
		ClientMsgID: r.ClientMsgID,
		CreatedAt:   r.CreatedAt,
	}
}

func toMessages(records []Record) []domain.Message {
	messages := make([]domain.Message, 0, len(records))
	for _, r := range records {
		messages = append(messages, r.toMessage())
	}
	return messages
}
