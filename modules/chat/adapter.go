package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/todo-chat-demo/domain/apperror"
	"github.com/example/todo-chat-demo/llm"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// sendMargin covers the task and history calls made around the completion
// call within one exchange.
const sendMargin = 15 * time.Second

// SendTimeout returns how long a caller waits for send-message. It outlasts
// the completion timeout so a timed-out completion still comes back as a
// degraded reply instead of a failed call.
func SendTimeout(cfg Config) time.Duration {
	timeout := cfg.LLM.Timeout
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}
	return timeout + sendMargin
}

// chatAdapter implements ChatPort over the chat module's send-message service.
type chatAdapter struct {
	container mono.ServiceContainer
	timeout   time.Duration
}

// NewChatAdapter creates a new adapter for the chat service. Every call is
// bounded by timeout; a timeout <= 0 uses SendTimeout of the default config.
func NewChatAdapter(container mono.ServiceContainer, timeout time.Duration) ChatPort {
	if container == nil {
		panic("chat adapter requires non-nil ServiceContainer")
	}
	if timeout <= 0 {
		timeout = SendTimeout(Config{})
	}
	return &chatAdapter{container: container, timeout: timeout}
}

// SendMessage sends a message via the send-message service.
func (a *chatAdapter) SendMessage(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	// Without a deadline the service container would apply its own 30s default.
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var resp SendMessageResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"send-message",
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, apperror.Persistence("send-message service call", err)
	}
	if resp.Invalid != nil {
		return nil, resp.Invalid
	}
	return resp.Response, nil
}
