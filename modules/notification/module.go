package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/todo-chat-demo/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
)

// maxLogEntries bounds the in-memory notification log.
const maxLogEntries = 1000

// NotificationLog represents a logged notification.
type NotificationLog struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationModule subscribes to task and chat events, keeps a bounded log
// of them and forwards task events to the configured Publisher.
type NotificationModule struct {
	publisher     Publisher
	dapr          DaprConfig
	notifications []NotificationLog
	mu            sync.RWMutex
	logger        types.Logger
}

var _ mono.Module = (*NotificationModule)(nil)
var _ mono.EventConsumerModule = (*NotificationModule)(nil)

// NewModule creates a NotificationModule. Task events are forwarded to Dapr
// when dapr.Enabled is set.
func NewModule(dapr DaprConfig, logger types.Logger) *NotificationModule {
	var publisher Publisher = nopPublisher{}
	if dapr.Enabled {
		publisher = NewDaprPublisher(dapr, logger)
	}
	return &NotificationModule{
		publisher:     publisher,
		dapr:          dapr,
		notifications: make([]NotificationLog, 0),
		logger:        logger,
	}
}

func (m *NotificationModule) Name() string {
	return "notification"
}

func (m *NotificationModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCompletionChangedV1, m.handleTaskCompletionChanged, m); err != nil {
		return fmt.Errorf("failed to register TaskCompletionChanged consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.ChatMessageHandledV1, m.handleChatMessageHandled, m); err != nil {
		return fmt.Errorf("failed to register ChatMessageHandled consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", "TaskCreated, TaskUpdated, TaskCompletionChanged, TaskDeleted, ChatMessageHandled")
	return nil
}

func (m *NotificationModule) handleTaskCreated(ctx context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	m.logNotification("task_created", event.UserID, fmt.Sprintf("New task '%s' created (%d)", event.Title, event.TaskID))
	m.publisher.Publish(ctx, "created", event)
	return nil
}

func (m *NotificationModule) handleTaskUpdated(ctx context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	m.logNotification("task_updated", event.UserID, fmt.Sprintf("Task %d updated: '%s'", event.TaskID, event.Title))
	m.publisher.Publish(ctx, "updated", event)
	return nil
}

func (m *NotificationModule) handleTaskCompletionChanged(ctx context.Context, event events.TaskCompletionChangedEvent, _ *mono.Msg) error {
	eventType := "reopened"
	if event.Completed {
		eventType = "completed"
	}
	m.logNotification("task_"+eventType, event.UserID, fmt.Sprintf("Task %d %s: '%s'", event.TaskID, eventType, event.Title))
	m.publisher.Publish(ctx, eventType, event)
	return nil
}

func (m *NotificationModule) handleTaskDeleted(ctx context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	m.logNotification("task_deleted", event.UserID, fmt.Sprintf("Task %d deleted", event.TaskID))
	m.publisher.Publish(ctx, "deleted", event)
	return nil
}

func (m *NotificationModule) handleChatMessageHandled(_ context.Context, event events.ChatMessageHandledEvent, _ *mono.Msg) error {
	m.logNotification("chat_message", event.UserID,
		fmt.Sprintf("Conversation %d answered (%s)", event.ConversationID, event.Intent))
	return nil
}

func (m *NotificationModule) logNotification(notificationType, userID, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.notifications = append(m.notifications, NotificationLog{
		ID:        uuid.New().String(),
		Type:      notificationType,
		UserID:    userID,
		Message:   message,
		Channel:   "event",
		Timestamp: time.Now(),
	})
	if over := len(m.notifications) - maxLogEntries; over > 0 {
		m.notifications = append(m.notifications[:0:0], m.notifications[over:]...)
	}
	m.logger.Debug("Notification logged", "type", notificationType, "userID", userID)
}

// GetNotifications returns a copy of the notification log, oldest first.
func (m *NotificationModule) GetNotifications() []NotificationLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]NotificationLog, len(m.notifications))
	copy(result, m.notifications)
	return result
}

func (m *NotificationModule) Start(_ context.Context) error {
	if p, ok := m.publisher.(*DaprPublisher); ok {
		m.logger.Info("Notification module started", "dapr", p.URL())
	} else {
		m.logger.Info("Notification module started", "dapr", "disabled")
	}
	return nil
}

func (m *NotificationModule) Stop(_ context.Context) error {
	m.logger.Info("Notification module stopped")
	return nil
}
