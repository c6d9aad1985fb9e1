package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/task"
	"github.com/example/todo-chat-demo/llm"
	"github.com/example/todo-chat-demo/modules/conversation"
	"github.com/example/todo-chat-demo/modules/task"
	"github.com/go-monolith/mono/pkg/types"
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

func newTestStore() *task.Store {
	return task.NewStore(task.NewMemoryRepository())
}

func newTestHistory() *conversation.History {
	return conversation.NewHistory(conversation.NewMemoryRepository())
}

func newTestService(t *testing.T, responder Responder, opts ...ServiceOption) (*Service, *task.Store, *conversation.History) {
	t.Helper()
	store := newTestStore()
	history := newTestHistory()
	svc := NewService(NewDispatcher(store, responder), history, &mockLogger{}, opts...)
	return svc, store, history
}

var errDiskFull = errors.New("disk full")

// brokenTasks fails every write with a persistence error.
type brokenTasks struct {
	task.TaskPort
}

func (brokenTasks) CreateTask(context.Context, *task.CreateTaskRequest) (*domain.Task, error) {
	return nil, apperror.Persistence("insert task", errDiskFull)
}

func (brokenTasks) TaskStats(context.Context, string) (domain.Stats, error) {
	return domain.Stats{}, apperror.Persistence("list tasks", errDiskFull)
}

// stubCompleter returns a canned reply or error and records what it was sent.
type stubCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]llm.Message
}

func (c *stubCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, messages)
	return c.reply, c.err
}
