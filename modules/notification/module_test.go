package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/example/todo-chat-demo/events"
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

type capturedPublish struct {
	eventType string
	task      any
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls []capturedPublish
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, task any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, capturedPublish{eventType: eventType, task: task})
}

func TestNotificationModule_LogsTaskEvents(t *testing.T) {
	ctx := context.Background()
	m := NewModule(DaprConfig{}, &mockLogger{})
	pub := &recordingPublisher{}
	m.publisher = pub

	now := time.Now()
	require.NoError(t, m.handleTaskCreated(ctx, events.TaskCreatedEvent{TaskID: 1, UserID: "u1", Title: "buy milk", CreatedAt: now}, nil))
	require.NoError(t, m.handleTaskUpdated(ctx, events.TaskUpdatedEvent{TaskID: 1, UserID: "u1", Title: "buy oat milk", UpdatedAt: now}, nil))
	require.NoError(t, m.handleTaskCompletionChanged(ctx, events.TaskCompletionChangedEvent{TaskID: 1, UserID: "u1", Title: "buy oat milk", Completed: true}, nil))
	require.NoError(t, m.handleTaskCompletionChanged(ctx, events.TaskCompletionChangedEvent{TaskID: 1, UserID: "u1", Title: "buy oat milk", Completed: false}, nil))
	require.NoError(t, m.handleTaskDeleted(ctx, events.TaskDeletedEvent{TaskID: 1, UserID: "u1", Title: "buy oat milk"}, nil))
	require.NoError(t, m.handleChatMessageHandled(ctx, events.ChatMessageHandledEvent{ConversationID: 3, UserID: "u1", Intent: "list"}, nil))

	logs := m.GetNotifications()
	require.Len(t, logs, 6)
	kinds := make([]string, 0, len(logs))
	for _, l := range logs {
		assert.NotEmpty(t, l.ID)
		assert.Equal(t, "u1", l.UserID)
		kinds = append(kinds, l.Type)
	}
	assert.Equal(t, []string{
		"task_created", "task_updated", "task_completed", "task_reopened", "task_deleted", "chat_message",
	}, kinds)
	assert.Contains(t, logs[0].Message, "buy milk")

	// chat events are not forwarded
	require.Len(t, pub.calls, 5)
	assert.Equal(t, "created", pub.calls[0].eventType)
	assert.Equal(t, "completed", pub.calls[2].eventType)
	assert.Equal(t, "reopened", pub.calls[3].eventType)
	assert.Equal(t, "deleted", pub.calls[4].eventType)
}

func TestNotificationModule_LogIsBounded(t *testing.T) {
	ctx := context.Background()
	m := NewModule(DaprConfig{}, &mockLogger{})

	for i := 0; i < maxLogEntries+10; i++ {
		require.NoError(t, m.handleTaskDeleted(ctx, events.TaskDeletedEvent{TaskID: int64(i), UserID: "u1"}, nil))
	}

	logs := m.GetNotifications()
	require.Len(t, logs, maxLogEntries)
	assert.Equal(t, "Task 10 deleted", logs[0].Message)
}

func TestNotificationModule_GetNotificationsReturnsCopy(t *testing.T) {
	m := NewModule(DaprConfig{}, &mockLogger{})
	m.logNotification("task_created", "u1", "hello")

	logs := m.GetNotifications()
	logs[0].Message = "changed"

	assert.Equal(t, "hello", m.GetNotifications()[0].Message)
}

func TestNewModule_PublisherSelection(t *testing.T) {
	disabled := NewModule(DaprConfig{}, &mockLogger{})
	_, ok := disabled.publisher.(nopPublisher)
	assert.True(t, ok)

	enabled := NewModule(DaprConfig{Enabled: true}, &mockLogger{})
	p, ok := enabled.publisher.(*DaprPublisher)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:3500/v1.0/publish/kafka-pubsub/task-events", p.URL())
}

func TestDaprPublisher_PostsEnvelope(t *testing.T) {
	type received struct {
		path string
		body map[string]any
	}
	got := make(chan received, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		got <- received{path: r.URL.Path, body: body}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	p := NewDaprPublisher(DaprConfig{Enabled: true, HTTPPort: port, PubsubName: "ps", TopicName: "tasks"}, &mockLogger{})
	p.Publish(context.Background(), "created", events.TaskCreatedEvent{TaskID: 7, UserID: "u1", Title: "x"})

	select {
	case r := <-got:
		assert.Equal(t, "/v1.0/publish/ps/tasks", r.path)
		assert.Equal(t, "created", r.body["event_type"])
		task, ok := r.body["task"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(7), task["task_id"])
	case <-time.After(5 * time.Second):
		t.Fatal("sidecar did not receive the event")
	}
}

func TestDaprPublisher_UnreachableSidecarIsIgnored(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	srv.Close()

	p := NewDaprPublisher(DaprConfig{Enabled: true, HTTPPort: port}, &mockLogger{})
	assert.NotPanics(t, func() {
		p.Publish(context.Background(), "deleted", map[string]any{"task_id": 1})
	})
}
