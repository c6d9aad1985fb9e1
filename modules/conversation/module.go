package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
	"github.com/go-monolith/mono/pkg/types"
)

// ConversationModule owns conversation history and exposes it as
// request-reply services.
type ConversationModule struct {
	cfg     BackendConfig
	kv      *kvjetstream.PluginModule
	repo    Repository
	history *History
	logger  types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*ConversationModule)(nil)
var _ mono.ServiceProviderModule = (*ConversationModule)(nil)
var _ mono.HealthCheckableModule = (*ConversationModule)(nil)
var _ mono.UsePluginModule = (*ConversationModule)(nil)

// NewModule creates a ConversationModule using the storage described by cfg.
func NewModule(cfg BackendConfig, logger types.Logger) *ConversationModule {
	return &ConversationModule{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *ConversationModule) Name() string {
	return "conversation"
}

// SetPlugin receives the kv-jetstream plugin used by the kv backend.
func (m *ConversationModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != KVPluginAlias {
		return
	}
	kv, ok := plugin.(*kvjetstream.PluginModule)
	if !ok {
		m.logger.Error("Invalid plugin type for kv",
			"alias", alias,
			"expected", "*kvjetstream.PluginModule")
		return
	}
	m.kv = kv
}

// RegisterServices registers request-reply services in the service container.
func (m *ConversationModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-or-create-conversation", json.Unmarshal, json.Marshal, m.getOrCreateConversation,
	); err != nil {
		return fmt.Errorf("failed to register get-or-create-conversation service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "append-turn", json.Unmarshal, json.Marshal, m.appendTurn,
	); err != nil {
		return fmt.Errorf("failed to register append-turn service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "recent-turns", json.Unmarshal, json.Marshal, m.recentTurns,
	); err != nil {
		return fmt.Errorf("failed to register recent-turns service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "conversation-turns", json.Unmarshal, json.Marshal, m.conversationTurns,
	); err != nil {
		return fmt.Errorf("failed to register conversation-turns service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-conversation", json.Unmarshal, json.Marshal, m.deleteConversation,
	); err != nil {
		return fmt.Errorf("failed to register delete-conversation service: %w", err)
	}

	m.logger.Info("Registered services",
		"services", "get-or-create-conversation, append-turn, recent-turns, conversation-turns, delete-conversation")
	return nil
}

// Start opens the history repository.
func (m *ConversationModule) Start(ctx context.Context) error {
	repo, err := m.openRepository(ctx)
	if err != nil {
		return fmt.Errorf("failed to open history repository: %w", err)
	}
	m.repo = repo
	m.history = NewHistory(repo)

	m.logger.Info("Conversation module started", "backend", m.backendName())
	return nil
}

// Stop closes the repository.
func (m *ConversationModule) Stop(_ context.Context) error {
	if m.repo == nil {
		return nil
	}
	if err := m.repo.Close(); err != nil {
		return fmt.Errorf("failed to close history repository: %w", err)
	}
	m.logger.Info("Conversation module stopped")
	return nil
}

// Health pings the history repository.
func (m *ConversationModule) Health(ctx context.Context) mono.HealthStatus {
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
			"backend": m.backendName(),
		},
	}
}

// History returns the history service. It is nil before Start.
func (m *ConversationModule) History() *History {
	return m.history
}

func (m *ConversationModule) openRepository(ctx context.Context) (Repository, error) {
	if m.cfg.Backend != BackendKV {
		return OpenRepository(ctx, m.cfg)
	}
	if m.kv == nil {
		return nil, fmt.Errorf("required plugin %q not registered", KVPluginAlias)
	}
	bucket := m.kv.Bucket(KVBucket)
	if bucket == nil {
		return nil, fmt.Errorf("bucket %q not found in kv plugin", KVBucket)
	}
	return NewKVRepository(bucket), nil
}

func (m *ConversationModule) backendName() string {
	if m.cfg.Backend == "" {
		return BackendSQLite
	}
	return m.cfg.Backend
}
