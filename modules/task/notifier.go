package task

import (
	"context"
	"time"

	domain "github.com/example/todo-chat-demo/domain/task"
	"github.com/example/todo-chat-demo/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Notifier receives task changes after they have been stored. Implementations
// must not block and must drop failures.
type Notifier interface {
	TaskCreated(ctx context.Context, task *domain.Task)
	TaskUpdated(ctx context.Context, task *domain.Task)
	TaskCompletionChanged(ctx context.Context, task *domain.Task)
	TaskDeleted(ctx context.Context, task *domain.Task)
}

type nopNotifier struct{}

func (nopNotifier) TaskCreated(context.Context, *domain.Task)           {}
func (nopNotifier) TaskUpdated(context.Context, *domain.Task)           {}
func (nopNotifier) TaskCompletionChanged(context.Context, *domain.Task) {}
func (nopNotifier) TaskDeleted(context.Context, *domain.Task)           {}

// eventNotifier publishes task events on the mono event bus.
type eventNotifier struct {
	bus    mono.EventBus
	logger types.Logger
}

func newEventNotifier(bus mono.EventBus, logger types.Logger) *eventNotifier {
	return &eventNotifier{bus: bus, logger: logger}
}

func (n *eventNotifier) TaskCreated(_ context.Context, t *domain.Task) {
	event := events.TaskCreatedEvent{
		TaskID:    t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		DueDate:   t.DueDate,
		CreatedAt: t.CreatedAt,
	}
	if err := events.TaskCreatedV1.Publish(n.bus, event, nil); err != nil {
		n.warn("TaskCreated", t, err)
	}
}

func (n *eventNotifier) TaskUpdated(_ context.Context, t *domain.Task) {
	event := events.TaskUpdatedEvent{
		TaskID:    t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		UpdatedAt: t.UpdatedAt,
	}
	if err := events.TaskUpdatedV1.Publish(n.bus, event, nil); err != nil {
		n.warn("TaskUpdated", t, err)
	}
}

func (n *eventNotifier) TaskCompletionChanged(_ context.Context, t *domain.Task) {
	event := events.TaskCompletionChangedEvent{
		TaskID:    t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		Completed: t.Completed,
		ChangedAt: t.UpdatedAt,
	}
	if err := events.TaskCompletionChangedV1.Publish(n.bus, event, nil); err != nil {
		n.warn("TaskCompletionChanged", t, err)
	}
}

func (n *eventNotifier) TaskDeleted(_ context.Context, t *domain.Task) {
	event := events.TaskDeletedEvent{
		TaskID:    t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		DeletedAt: time.Now(),
	}
	if err := events.TaskDeletedV1.Publish(n.bus, event, nil); err != nil {
		n.warn("TaskDeleted", t, err)
	}
}

// Event publishing is best-effort; log but don't fail the operation.
func (n *eventNotifier) warn(event string, t *domain.Task, err error) {
	n.logger.Warn("Failed to publish event",
		"event", event,
		"taskID", t.ID,
		"userID", t.UserID,
		"error", err)
}
