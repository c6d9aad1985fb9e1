package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// ChatMessageHandledEvent is emitted after a chat turn has been answered.
type ChatMessageHandledEvent struct {
	ConversationID int64     `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Intent         string    `json:"intent"`
	HandledAt      time.Time `json:"handled_at"`
}

// ChatMessageHandledV1 is the typed event definition for answered chat turns.
// Subject: events.chat.v1.chat-message-handled
var ChatMessageHandledV1 = helper.EventDefinition[ChatMessageHandledEvent](
	"chat", "ChatMessageHandled", "v1",
)
