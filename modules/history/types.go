package history

import (
	domain "github.com/example/chat-relay/domain/chat"
)

// QueryBeforeRequest asks for a page of room history.
type QueryBeforeRequest struct {
	RoomID string `json:"roomId"`
	Before int64  `json:"before"`
	Limit  int    `json:"limit"`
}

// QueryBeforeResponse carries one page of messages in ascending time
// order.
type QueryBeforeResponse struct {
	Messages []domain.Message `json:"messages"`
}

// SearchRequest asks for a keyword scan over a room's history.
type SearchRequest struct {
	RoomID  string `json:"roomId"`
	Keyword string `json:"keyword"`
}

// SearchResponse carries the matching messages in ascending time order.
type SearchResponse struct {
	Messages []domain.Message `json:"messages"`
}
