package history

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/example/chat-relay/domain/chat"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store is the append-only message log. Messages are never updated or
// deleted once written.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new message store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Append persists one message.
func (s *Store) Append(msg domain.Message) error {
	record := recordFromMessage(msg)
	if err := s.db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// QueryBefore returns up to limit messages of a room created strictly
// before the given unix-millisecond timestamp, in ascending time order.
// A before of zero means "now"; the cutoff sits one millisecond past the
// clock so a message appended in the current millisecond is still
// visible. limit is clamped to 100 and defaults to 20.
func (s *Store) QueryBefore(roomID string, before int64, limit int) ([]domain.Message, error) {
	if before <= 0 {
		before = time.Now().UnixMilli() + 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	// Fetch the newest page first, then flip it to chronological order.
	var records []Record
	err := s.db.
		Where("room_id = ? AND created_at < ?", roomID, before).
		Order("created_at DESC, seq DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return toMessages(records), nil
}

// Search returns all messages of a room whose content, file name, or
// sender contains the keyword, case-insensitively, in ascending time
// order.
func (s *Store) Search(roomID, keyword string) ([]domain.Message, error) {
	pattern := "%" + strings.ToLower(keyword) + "%"

	var records []Record
	err := s.db.
		Where("room_id = ?", roomID).
		Where("LOWER(content) LIKE ? OR LOWER(file_name) LIKE ? OR LOWER(sender) LIKE ?",
			pattern, pattern, pattern).
		Order("created_at ASC, seq ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return toMessages(records), nil
}

// Count returns the total number of stored messages.
func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&Record{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
