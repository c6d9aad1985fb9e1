package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/example/todo-chat-demo/domain/apperror"
	"github.com/example/todo-chat-demo/modules/chat"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// setupWebSocket registers GET /ws/:user_id/chat. Every text frame carries a
// ChatMessageRequest and is answered with a chat response or an ErrorResponse.
func (m *APIModule) setupWebSocket(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/:user_id/chat", websocket.New(m.handleChatSocket))
}

func (m *APIModule) handleChatSocket(c *websocket.Conn) {
	userID := c.Params("user_id")
	defer c.Close()

	m.logger.Info("WebSocket connected", "userID", userID)

	for {
		msgType, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Error("WebSocket error", "userID", userID, "error", err)
			}
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if err := c.WriteJSON(m.answerFrame(userID, raw)); err != nil {
			m.logger.Warn("WebSocket write failed", "userID", userID, "error", err)
			break
		}
	}

	m.logger.Info("WebSocket disconnected", "userID", userID)
}

// answerFrame runs one chat exchange for a raw frame and returns the value
// to write back.
func (m *APIModule) answerFrame(userID string, raw []byte) any {
	var req ChatMessageRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return ErrorResponse{Error: "invalid_request", Message: "Invalid message frame"}
	}

	resp, err := m.chat.SendMessage(context.Background(), &chat.ChatRequest{
		UserID:         userID,
		Message:        req.Message,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		var ve *apperror.ValidationError
		if errors.As(err, &ve) {
			return ErrorResponse{Error: "validation_error", Message: ve.Error()}
		}
		m.logger.Error("Chat over WebSocket failed", "userID", userID, "error", err)
		return ErrorResponse{Error: "server_error", Message: "Internal Server Error"}
	}
	return resp
}
