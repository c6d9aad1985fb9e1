package conversation

import (
	"context"
	"encoding/json"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/conversation"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// historyAdapter implements HistoryPort over the conversation module's services.
type historyAdapter struct {
	container mono.ServiceContainer
}

// NewHistoryAdapter creates a new adapter for conversation services.
func NewHistoryAdapter(container mono.ServiceContainer) HistoryPort {
	if container == nil {
		panic("history adapter requires non-nil ServiceContainer")
	}
	return &historyAdapter{container: container}
}

func (a *historyAdapter) GetOrCreateConversation(ctx context.Context, userID string, requestedID *int64) (*domain.Conversation, error) {
	req := GetOrCreateConversationRequest{UserID: userID, ConversationID: requestedID}
	var resp ConversationResponse
	if err := callService(ctx, a.container, "get-or-create-conversation", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Conversation, nil
}

func (a *historyAdapter) AppendTurn(ctx context.Context, conversationID int64, role domain.Role, content string) (*domain.Turn, error) {
	req := AppendTurnRequest{ConversationID: conversationID, Role: role, Content: content}
	var resp AppendTurnResponse
	if err := callService(ctx, a.container, "append-turn", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Invalid != nil {
		return nil, resp.Invalid
	}
	if !resp.Found {
		return nil, domain.ErrNotFound
	}
	return resp.Turn, nil
}

func (a *historyAdapter) RecentTurns(ctx context.Context, conversationID int64, limit int) ([]*domain.Turn, error) {
	req := RecentTurnsRequest{ConversationID: conversationID, Limit: limit}
	var resp TurnsResponse
	if err := callService(ctx, a.container, "recent-turns", &req, &resp); err != nil {
		return nil, err
	}
	return fromTurnsResponse(&resp)
}

func (a *historyAdapter) ConversationTurns(ctx context.Context, userID string, conversationID int64, limit int) ([]*domain.Turn, error) {
	req := ConversationTurnsRequest{UserID: userID, ConversationID: conversationID, Limit: limit}
	var resp TurnsResponse
	if err := callService(ctx, a.container, "conversation-turns", &req, &resp); err != nil {
		return nil, err
	}
	return fromTurnsResponse(&resp)
}

func (a *historyAdapter) DeleteConversation(ctx context.Context, userID string, conversationID int64) (bool, error) {
	req := DeleteConversationRequest{UserID: userID, ConversationID: conversationID}
	var resp DeleteConversationResponse
	if err := callService(ctx, a.container, "delete-conversation", &req, &resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return apperror.Persistence(service+" service call", err)
	}
	return nil
}

func fromTurnsResponse(resp *TurnsResponse) ([]*domain.Turn, error) {
	if !resp.Found {
		return nil, domain.ErrNotFound
	}
	if resp.Turns == nil {
		resp.Turns = []*domain.Turn{}
	}
	return resp.Turns, nil
}
