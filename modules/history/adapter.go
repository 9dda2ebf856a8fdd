package history

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/chat-relay/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// HistoryPort is the query surface other modules use (hexagonal port).
type HistoryPort interface {
	QueryBefore(ctx context.Context, roomID string, before int64, limit int) ([]domain.Message, error)
	Search(ctx context.Context, roomID, keyword string) ([]domain.Message, error)
}

// historyAdapter implements HistoryPort over the history module's
// ServiceContainer.
type historyAdapter struct {
	container mono.ServiceContainer
}

// NewHistoryAdapter creates an adapter for the history services.
// container is received via SetDependencyServiceContainer.
func NewHistoryAdapter(container mono.ServiceContainer) HistoryPort {
	if container == nil {
		panic("history: HistoryPort requires a non-nil ServiceContainer")
	}
	return &historyAdapter{container: container}
}

// QueryBefore fetches a page of room history via the query-before
// service.
func (a *historyAdapter) QueryBefore(ctx context.Context, roomID string, before int64, limit int) ([]domain.Message, error) {
	req := QueryBeforeRequest{RoomID: roomID, Before: before, Limit: limit}
	var resp QueryBeforeResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"query-before",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("query-before service call failed: %w", err)
	}
	return resp.Messages, nil
}

// Search runs a keyword scan via the search service.
func (a *historyAdapter) Search(ctx context.Context, roomID, keyword string) ([]domain.Message, error) {
	req := SearchRequest{RoomID: roomID, Keyword: keyword}
	var resp SearchResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"search",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("search service call failed: %w", err)
	}
	return resp.Messages, nil
}
