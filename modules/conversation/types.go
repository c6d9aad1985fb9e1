package conversation

import (
	"context"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/conversation"
)

// GetOrCreateConversationRequest is the request for selecting a conversation.
type GetOrCreateConversationRequest struct {
	UserID         string `json:"user_id"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
}

// ConversationResponse carries a conversation.
type ConversationResponse struct {
	Conversation *domain.Conversation `json:"conversation"`
}

// AppendTurnRequest is the request for appending a turn.
type AppendTurnRequest struct {
	ConversationID int64       `json:"conversation_id"`
	Role           domain.Role `json:"role"`
	Content        string      `json:"content"`
}

// AppendTurnResponse carries the stored turn. Found is false when the
// conversation does not exist.
type AppendTurnResponse struct {
	Found   bool                      `json:"found"`
	Turn    *domain.Turn              `json:"turn,omitempty"`
	Invalid *apperror.ValidationError `json:"invalid,omitempty"`
}

// RecentTurnsRequest is the request for the latest turns of a conversation.
type RecentTurnsRequest struct {
	ConversationID int64 `json:"conversation_id"`
	Limit          int   `json:"limit"`
}

// ConversationTurnsRequest is RecentTurnsRequest with an ownership check.
type ConversationTurnsRequest struct {
	UserID         string `json:"user_id"`
	ConversationID int64  `json:"conversation_id"`
	Limit          int    `json:"limit"`
}

// TurnsResponse carries turns oldest first.
type TurnsResponse struct {
	Found bool           `json:"found"`
	Turns []*domain.Turn `json:"turns"`
}

// DeleteConversationRequest is the request for deleting a conversation.
type DeleteConversationRequest struct {
	UserID         string `json:"user_id"`
	ConversationID int64  `json:"conversation_id"`
}

// DeleteConversationResponse is the response for deleting a conversation.
type DeleteConversationResponse struct {
	Deleted bool `json:"deleted"`
}

// HistoryPort is the contract callers use to reach conversation history.
// Implemented by *History in-process and by the service adapter.
type HistoryPort interface {
	GetOrCreateConversation(ctx context.Context, userID string, requestedID *int64) (*domain.Conversation, error)
	AppendTurn(ctx context.Context, conversationID int64, role domain.Role, content string) (*domain.Turn, error)
	RecentTurns(ctx context.Context, conversationID int64, limit int) ([]*domain.Turn, error)
	ConversationTurns(ctx context.Context, userID string, conversationID int64, limit int) ([]*domain.Turn, error)
	DeleteConversation(ctx context.Context, userID string, conversationID int64) (bool, error)
}
