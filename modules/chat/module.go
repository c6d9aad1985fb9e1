package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/todo-chat-demo/events"
	"github.com/example/todo-chat-demo/llm"
	"github.com/example/todo-chat-demo/metrics"
	"github.com/example/todo-chat-demo/modules/conversation"
	"github.com/example/todo-chat-demo/modules/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Fallback modes.
const (
	FallbackAssistant = "assistant"
	FallbackStatic    = "static"
)

// Config configures the chat module.
type Config struct {
	HistoryLimit int
	Fallback     string
	ContextTurns int
	LLM          llm.Config
}

// NewResponder builds the fallback responder selected by cfg.
func NewResponder(cfg Config) Responder {
	if cfg.Fallback == FallbackStatic {
		return StaticResponder{}
	}
	return NewCompletionResponder(llm.NewClient(cfg.LLM), cfg.ContextTurns)
}

// ChatModule runs the command dispatcher on top of the task and conversation
// modules.
type ChatModule struct {
	cfg      Config
	tasks    task.TaskPort
	history  conversation.HistoryPort
	service  *Service
	eventBus mono.EventBus
	metrics  *metrics.Metrics
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*ChatModule)(nil)
var _ mono.ServiceProviderModule = (*ChatModule)(nil)
var _ mono.DependentModule = (*ChatModule)(nil)
var _ mono.EventEmitterModule = (*ChatModule)(nil)

// NewModule creates a ChatModule.
func NewModule(cfg Config, m *metrics.Metrics, logger types.Logger) *ChatModule {
	return &ChatModule{
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// Name returns the module name.
func (m *ChatModule) Name() string {
	return "chat"
}

// Dependencies returns the list of module dependencies.
func (m *ChatModule) Dependencies() []string {
	return []string{"task", "conversation"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *ChatModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "task":
		m.tasks = task.NewTaskAdapter(container)
	case "conversation":
		m.history = conversation.NewHistoryAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *ChatModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *ChatModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ChatMessageHandledV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *ChatModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "send-message", json.Unmarshal, json.Marshal, m.sendMessage,
	); err != nil {
		return fmt.Errorf("failed to register send-message service: %w", err)
	}

	m.logger.Info("Registered services", "services", "send-message")
	return nil
}

// Start builds the chat service.
func (m *ChatModule) Start(_ context.Context) error {
	if m.tasks == nil {
		return fmt.Errorf("task dependency not set")
	}
	if m.history == nil {
		return fmt.Errorf("conversation dependency not set")
	}

	opts := []ServiceOption{
		WithHistoryLimit(m.cfg.HistoryLimit),
		WithMetrics(m.metrics),
	}
	if m.eventBus != nil {
		opts = append(opts, WithEventPublisher(m.publishHandled))
	} else {
		m.logger.Warn("eventBus not set, chat events will not be published")
	}

	m.service = NewService(NewDispatcher(m.tasks, NewResponder(m.cfg)), m.history, m.logger, opts...)

	fallback := m.cfg.Fallback
	if fallback == "" {
		fallback = FallbackAssistant
	}
	m.logger.Info("Chat module started", "fallback", fallback, "model", m.cfg.LLM.Model)
	return nil
}

// Stop stops the module.
func (m *ChatModule) Stop(_ context.Context) error {
	m.logger.Info("Chat module stopped")
	return nil
}

// Service returns the chat service. It is nil before Start.
func (m *ChatModule) Service() *Service {
	return m.service
}

// Event publishing is best-effort; log but don't fail the exchange.
func (m *ChatModule) publishHandled(event events.ChatMessageHandledEvent) {
	if err := events.ChatMessageHandledV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish event",
			"event", "ChatMessageHandled",
			"conversationID", event.ConversationID,
			"error", err)
	}
}

