package chat

import (
	"context"
	"strings"
	"time"

	"github.com/example/todo-chat-demo/domain/apperror"
	convdomain "github.com/example/todo-chat-demo/domain/conversation"
	"github.com/example/todo-chat-demo/events"
	"github.com/example/todo-chat-demo/metrics"
	"github.com/example/todo-chat-demo/modules/conversation"
	"github.com/example/todo-chat-demo/pkg/userlock"
	"github.com/go-monolith/mono/pkg/types"
)

// DefaultHistoryLimit is how many turns a chat response carries.
const DefaultHistoryLimit = 20

const persistenceFailureReply = "Something went wrong while saving your tasks. Please try again."

// EventPublisher receives a notice for every answered message.
type EventPublisher func(event events.ChatMessageHandledEvent)

// Service runs one chat exchange: it records the user turn, dispatches the
// message, records the reply and returns the updated history. Exchanges of
// the same user never interleave.
type Service struct {
	dispatcher   *Dispatcher
	history      conversation.HistoryPort
	locks        *userlock.Locker
	historyLimit int
	metrics      *metrics.Metrics
	publish      EventPublisher
	logger       types.Logger
	now          func() time.Time
}

var _ ChatPort = (*Service)(nil)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithHistoryLimit sets how many turns a response carries.
func WithHistoryLimit(limit int) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithMetrics records intents, fallbacks and durations on m.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithEventPublisher sets the receiver of ChatMessageHandled notices.
func WithEventPublisher(p EventPublisher) ServiceOption {
	return func(s *Service) { s.publish = p }
}

// NewService creates a chat Service.
func NewService(dispatcher *Dispatcher, history conversation.HistoryPort, logger types.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		dispatcher:   dispatcher,
		history:      history,
		locks:        userlock.New(),
		historyLimit: DefaultHistoryLimit,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendMessage implements ChatPort.
func (s *Service) SendMessage(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return s.HandleMessage(ctx, *req)
}

// HandleMessage answers one message. Only persistence failures are returned as
// errors; in that case an apology turn is still recorded when possible.
func (s *Service) HandleMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := s.now()

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, apperror.NewValidationError("user_id", "user_id is required")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperror.NewValidationError("message", "message is required")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	conv, err := s.history.GetOrCreateConversation(ctx, userID, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.history.AppendTurn(ctx, conv.ID, convdomain.RoleUser, message); err != nil {
		return nil, err
	}

	recent := func(ctx context.Context, limit int) ([]*convdomain.Turn, error) {
		return s.history.RecentTurns(ctx, conv.ID, limit)
	}
	result, err := s.dispatcher.Dispatch(ctx, userID, message, recent)
	if err != nil {
		s.logger.Error("Chat dispatch failed",
			"userID", userID,
			"conversationID", conv.ID,
			"intent", result.Intent,
			"error", err)
		if _, appendErr := s.history.AppendTurn(ctx, conv.ID, convdomain.RoleAssistant, persistenceFailureReply); appendErr != nil {
			s.logger.Warn("Failed to record apology turn", "conversationID", conv.ID, "error", appendErr)
		}
		return nil, err
	}

	if _, err := s.history.AppendTurn(ctx, conv.ID, convdomain.RoleAssistant, result.Reply); err != nil {
		return nil, err
	}

	turns, err := s.history.RecentTurns(ctx, conv.ID, s.historyLimit)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordIntent(string(result.Intent))
	if result.Fallback != nil {
		s.metrics.RecordFallback(result.Fallback.Outcome)
	}
	s.metrics.ObserveDispatch(start)

	if s.publish != nil {
		s.publish(events.ChatMessageHandledEvent{
			ConversationID: conv.ID,
			UserID:         userID,
			Intent:         string(result.Intent),
			HandledAt:      s.now(),
		})
	}

	s.logger.Debug("Chat message handled",
		"userID", userID,
		"conversationID", conv.ID,
		"intent", result.Intent)

	return &ChatResponse{
		Reply:          result.Reply,
		ConversationID: conv.ID,
		Intent:         result.Intent,
		History:        turns,
	}, nil
}
