package task

import (
	"context"
	"sync"

	domain "github.com/example/todo-chat-demo/domain/task"
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

func newMockLogger() types.Logger {
	return &mockLogger{}
}

// recordingNotifier collects notifications as "<kind>:<id>".
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) record(kind string, t *domain.Task) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, kind+":"+t.Title)
}

func (n *recordingNotifier) TaskCreated(_ context.Context, t *domain.Task) { n.record("created", t) }
func (n *recordingNotifier) TaskUpdated(_ context.Context, t *domain.Task) { n.record("updated", t) }
func (n *recordingNotifier) TaskCompletionChanged(_ context.Context, t *domain.Task) {
	n.record("completion", t)
}
func (n *recordingNotifier) TaskDeleted(_ context.Context, t *domain.Task) { n.record("deleted", t) }

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }
