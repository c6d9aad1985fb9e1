package chat

import (
	"context"
	"errors"

	"github.com/example/todo-chat-demo/domain/apperror"
	"github.com/go-monolith/mono"
)

// sendMessage handles the send-message service request.
func (m *ChatModule) sendMessage(ctx context.Context, req ChatRequest, _ *mono.Msg) (SendMessageResponse, error) {
	resp, err := m.service.HandleMessage(ctx, req)
	var ve *apperror.ValidationError
	switch {
	case err == nil:
		return SendMessageResponse{Response: resp}, nil
	case errors.As(err, &ve):
		return SendMessageResponse{Invalid: ve}, nil
	default:
		return SendMessageResponse{}, err
	}
}
