package task

import (
	"context"
	"testing"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/task"
	"github.com/example/todo-chat-demo/pkg/monotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTaskApp runs a task module inside a mono application and returns the
// module and an adapter talking to it over the service container.
func startTaskApp(t *testing.T, databaseURL string) (*TaskModule, TaskPort) {
	t.Helper()
	m := NewModule(databaseURL, false, nil, newMockLogger())
	client := monotest.Start(t, m)
	return m, NewTaskAdapter(client.Container(t, m.Name()))
}

func TestTaskAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	_, port := startTaskApp(t, MemoryBackend)

	created, err := port.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: "Buy milk", DueDate: "2026-01-02"})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", created.Title)

	got, err := port.GetTask(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	found, err := port.FindTaskByTitle(ctx, "u1", "buy MILK")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	done, err := port.SetCompleted(ctx, "u1", created.ID, nil)
	require.NoError(t, err)
	assert.True(t, done.Completed)

	tasks, err := port.ListTasks(ctx, "u1", domain.FilterCompleted)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	stats, err := port.TaskStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Total: 1, Completed: 1}, stats)

	deleted, err := port.DeleteTask(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	empty, err := port.ListTasks(ctx, "u1", domain.FilterAll)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestTaskAdapter_ErrorClasses(t *testing.T) {
	ctx := context.Background()
	_, port := startTaskApp(t, MemoryBackend)

	created, err := port.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: "mine"})
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		_, err := port.GetTask(ctx, "u1", 999)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = port.GetTask(ctx, "someone-else", created.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = port.SetCompleted(ctx, "u1", 999, boolPtr(true))
		assert.ErrorIs(t, err, domain.ErrNotFound)

		deleted, err := port.DeleteTask(ctx, "u1", 999)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := port.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: "   "})
		require.True(t, apperror.IsValidation(err), "got %v", err)
		assert.False(t, apperror.IsPersistence(err))

		_, err = port.UpdateTask(ctx, &UpdateTaskRequest{UserID: "u1", TaskID: created.ID, DueDate: strPtr("02/01/2026")})
		assert.True(t, apperror.IsValidation(err), "got %v", err)

		_, err = port.ListTasks(ctx, "u1", domain.Filter("later"))
		assert.True(t, apperror.IsValidation(err), "got %v", err)
	})
}

func TestTaskAdapter_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	m, port := startTaskApp(t, ":memory:")

	_, err := port.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: "before"})
	require.NoError(t, err)

	// Closing the handle under the running module makes every query fail.
	require.NoError(t, m.repo.Close())

	_, err = port.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: "after"})
	require.Error(t, err)
	assert.True(t, apperror.IsPersistence(err), "got %v", err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, apperror.IsValidation(err))

	_, err = port.TaskStats(ctx, "u1")
	assert.True(t, apperror.IsPersistence(err), "got %v", err)
}
