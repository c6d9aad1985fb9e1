package conversation

import (
	"context"
	"fmt"
	"testing"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/conversation"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func int64Ptr(v int64) *int64 { return &v }

func TestHistory_GetOrCreateConversation(t *testing.T) {
	ctx := context.Background()
	h := NewHistory(NewMemoryRepository())

	first, err := h.GetOrCreateConversation(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", first.UserID)

	t.Run("no id reuses latest", func(t *testing.T) {
		again, err := h.GetOrCreateConversation(ctx, "alice", nil)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	})

	t.Run("own id is reused", func(t *testing.T) {
		again, err := h.GetOrCreateConversation(ctx, "alice", int64Ptr(first.ID))
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	})

	t.Run("foreign id creates a new conversation", func(t *testing.T) {
		bobs, err := h.GetOrCreateConversation(ctx, "bob", int64Ptr(first.ID))
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, bobs.ID)
		assert.Equal(t, "bob", bobs.UserID)
	})

	t.Run("unknown id creates a new conversation", func(t *testing.T) {
		fresh, err := h.GetOrCreateConversation(ctx, "alice", int64Ptr(4242))
		require.NoError(t, err)
		assert.NotEqual(t, int64(4242), fresh.ID)
		assert.Equal(t, "alice", fresh.UserID)
	})
}

func TestHistory_AppendAndRecent(t *testing.T) {
	ctx := context.Background()
	h := NewHistory(NewMemoryRepository())

	conv, err := h.GetOrCreateConversation(ctx, "u1", nil)
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		_, err := h.AppendTurn(ctx, conv.ID, domain.RoleUser, fmt.Sprintf("q%d", i))
		require.NoError(t, err)
		_, err = h.AppendTurn(ctx, conv.ID, domain.RoleAssistant, fmt.Sprintf("a%d", i))
		require.NoError(t, err)
	}

	recent, err := h.RecentTurns(ctx, conv.ID, 20)
	require.NoError(t, err)
	require.Len(t, recent, 20)
	assert.Equal(t, "q15", recent[0].Content)
	assert.Equal(t, "a24", recent[19].Content)
	for i := 1; i < len(recent); i++ {
		assert.Less(t, recent[i-1].ID, recent[i].ID)
	}

	_, err = h.AppendTurn(ctx, conv.ID, domain.Role("system"), "nope")
	assert.True(t, apperror.IsValidation(err))

	_, err = h.AppendTurn(ctx, 999, domain.RoleUser, "orphan")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistory_OwnershipChecks(t *testing.T) {
	ctx := context.Background()
	h := NewHistory(NewMemoryRepository())

	conv, err := h.GetOrCreateConversation(ctx, "alice", nil)
	require.NoError(t, err)
	_, err = h.AppendTurn(ctx, conv.ID, domain.RoleUser, "hello")
	require.NoError(t, err)

	_, err = h.ConversationTurns(ctx, "bob", conv.ID, 20)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	turns, err := h.ConversationTurns(ctx, "alice", conv.ID, 20)
	require.NoError(t, err)
	assert.Len(t, turns, 1)

	deleted, err := h.DeleteConversation(ctx, "bob", conv.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = h.DeleteConversation(ctx, "alice", conv.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = h.DeleteConversation(ctx, "alice", conv.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestModule_ServiceHandlers(t *testing.T) {
	ctx := context.Background()
	m := NewModule(BackendConfig{Backend: BackendMemory}, &mockLogger{})
	require.NoError(t, m.Start(ctx))
	defer m.Stop(ctx)

	conv, err := m.getOrCreateConversation(ctx, GetOrCreateConversationRequest{UserID: "u1"}, nil)
	require.NoError(t, err)
	id := conv.Conversation.ID

	appended, err := m.appendTurn(ctx, AppendTurnRequest{ConversationID: id, Role: domain.RoleUser, Content: "hi"}, nil)
	require.NoError(t, err)
	assert.True(t, appended.Found)

	missing, err := m.appendTurn(ctx, AppendTurnRequest{ConversationID: 77, Role: domain.RoleUser, Content: "hi"}, nil)
	require.NoError(t, err)
	assert.False(t, missing.Found)

	invalid, err := m.appendTurn(ctx, AppendTurnRequest{ConversationID: id, Role: "robot", Content: "hi"}, nil)
	require.NoError(t, err)
	require.NotNil(t, invalid.Invalid)

	turns, err := m.conversationTurns(ctx, ConversationTurnsRequest{UserID: "u1", ConversationID: id, Limit: 20}, nil)
	require.NoError(t, err)
	assert.True(t, turns.Found)
	assert.Len(t, turns.Turns, 1)

	foreign, err := m.conversationTurns(ctx, ConversationTurnsRequest{UserID: "u2", ConversationID: id, Limit: 20}, nil)
	require.NoError(t, err)
	assert.False(t, foreign.Found)

	deleted, err := m.deleteConversation(ctx, DeleteConversationRequest{UserID: "u1", ConversationID: id}, nil)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)

	status := m.Health(ctx)
	assert.True(t, status.Healthy)
	assert.Equal(t, BackendMemory, status.Details["backend"])
}
