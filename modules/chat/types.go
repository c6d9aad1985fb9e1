package chat

import (
	"context"

	"github.com/example/todo-chat-demo/domain/apperror"
	convdomain "github.com/example/todo-chat-demo/domain/conversation"
)

// ChatRequest is one inbound chat message.
type ChatRequest struct {
	UserID         string `json:"user_id"`
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
}

// ChatResponse is the reply to a chat message together with the updated
// conversation history, oldest first.
type ChatResponse struct {
	Reply          string             `json:"reply"`
	ConversationID int64              `json:"conversation_id"`
	Intent         Intent             `json:"intent"`
	History        []*convdomain.Turn `json:"history"`
}

// SendMessageResponse is the send-message service response. Invalid is set
// when the request was rejected before dispatch.
type SendMessageResponse struct {
	Response *ChatResponse            `json:"response,omitempty"`
	Invalid  *apperror.ValidationError `json:"invalid,omitempty"`
}

// ChatPort is the chat entry point. Implemented by *Service in-process and by
// the service adapter.
type ChatPort interface {
	SendMessage(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
