package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/todo-chat-demo/events"
	"github.com/example/todo-chat-demo/metrics"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// TaskModule owns the task store and exposes it as request-reply services.
type TaskModule struct {
	databaseURL string
	debug       bool
	repo        Repository
	store       *Store
	eventBus    mono.EventBus
	metrics     *metrics.Metrics
	logger      types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*TaskModule)(nil)
var _ mono.ServiceProviderModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)
var _ mono.HealthCheckableModule = (*TaskModule)(nil)

// NewModule creates a TaskModule storing tasks at databaseURL
// (see OpenRepository). debug enables SQL logging.
func NewModule(databaseURL string, debug bool, m *metrics.Metrics, logger types.Logger) *TaskModule {
	return &TaskModule{
		databaseURL: databaseURL,
		debug:       debug,
		metrics:     m,
		logger:      logger,
	}
}

// Name returns the module name.
func (m *TaskModule) Name() string {
	return "task"
}

// SetEventBus receives the EventBus from the framework.
func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskCompletionChangedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "find-task", json.Unmarshal, json.Marshal, m.findTask,
	); err != nil {
		return fmt.Errorf("failed to register find-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-tasks", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-task", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "complete-task", json.Unmarshal, json.Marshal, m.completeTask,
	); err != nil {
		return fmt.Errorf("failed to register complete-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-task", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "task-stats", json.Unmarshal, json.Marshal, m.taskStats,
	); err != nil {
		return fmt.Errorf("failed to register task-stats service: %w", err)
	}

	m.logger.Info("Registered services",
		"services", "create-task, get-task, find-task, list-tasks, update-task, complete-task, delete-task, task-stats")
	return nil
}

// Start opens the repository and builds the store.
func (m *TaskModule) Start(ctx context.Context) error {
	repo, err := OpenRepository(ctx, m.databaseURL, m.debug)
	if err != nil {
		return fmt.Errorf("failed to open task repository: %w", err)
	}
	m.repo = repo

	opts := []StoreOption{WithMetrics(m.metrics)}
	if m.eventBus != nil {
		opts = append(opts, WithNotifier(newEventNotifier(m.eventBus, m.logger)))
	} else {
		m.logger.Warn("eventBus not set, task events will not be published")
	}
	m.store = NewStore(repo, opts...)

	m.logger.Info("Task module started", "backend", BackendName(m.databaseURL))
	return nil
}

// Stop closes the repository.
func (m *TaskModule) Stop(_ context.Context) error {
	if m.repo == nil {
		return nil
	}
	if err := m.repo.Close(); err != nil {
		return fmt.Errorf("failed to close task repository: %w", err)
	}
	m.logger.Info("Task module stopped")
	return nil
}

// Health pings the task repository.
func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	if m.repo == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "repository not initialized",
		}
	}
	if err := m.repo.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("repository ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"backend": BackendName(m.databaseURL),
		},
	}
}

// Store returns the task store. It is nil before Start.
func (m *TaskModule) Store() *Store {
	return m.store
}
