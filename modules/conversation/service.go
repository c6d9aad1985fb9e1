package conversation

import (
	"context"
	"errors"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/conversation"
	"github.com/go-monolith/mono"
)

// getOrCreateConversation handles the get-or-create-conversation service request.
func (m *ConversationModule) getOrCreateConversation(ctx context.Context, req GetOrCreateConversationRequest, _ *mono.Msg) (ConversationResponse, error) {
	conv, err := m.history.GetOrCreateConversation(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return ConversationResponse{}, err
	}
	return ConversationResponse{Conversation: conv}, nil
}

// appendTurn handles the append-turn service request.
func (m *ConversationModule) appendTurn(ctx context.Context, req AppendTurnRequest, _ *mono.Msg) (AppendTurnResponse, error) {
	turn, err := m.history.AppendTurn(ctx, req.ConversationID, req.Role, req.Content)
	var ve *apperror.ValidationError
	switch {
	case err == nil:
		return AppendTurnResponse{Found: true, Turn: turn}, nil
	case errors.Is(err, domain.ErrNotFound):
		return AppendTurnResponse{}, nil
	case errors.As(err, &ve):
		return AppendTurnResponse{Invalid: ve}, nil
	default:
		return AppendTurnResponse{}, err
	}
}

// recentTurns handles the recent-turns service request.
func (m *ConversationModule) recentTurns(ctx context.Context, req RecentTurnsRequest, _ *mono.Msg) (TurnsResponse, error) {
	return toTurnsResponse(m.history.RecentTurns(ctx, req.ConversationID, req.Limit))
}

// conversationTurns handles the conversation-turns service request.
func (m *ConversationModule) conversationTurns(ctx context.Context, req ConversationTurnsRequest, _ *mono.Msg) (TurnsResponse, error) {
	return toTurnsResponse(m.history.ConversationTurns(ctx, req.UserID, req.ConversationID, req.Limit))
}

// deleteConversation handles the delete-conversation service request.
func (m *ConversationModule) deleteConversation(ctx context.Context, req DeleteConversationRequest, _ *mono.Msg) (DeleteConversationResponse, error) {
	deleted, err := m.history.DeleteConversation(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return DeleteConversationResponse{}, err
	}
	return DeleteConversationResponse{Deleted: deleted}, nil
}

func toTurnsResponse(turns []*domain.Turn, err error) (TurnsResponse, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return TurnsResponse{}, nil
	}
	if err != nil {
		return TurnsResponse{}, err
	}
	return TurnsResponse{Found: true, Turns: turns}, nil
}
