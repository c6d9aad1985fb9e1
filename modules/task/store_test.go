package task

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/task"
	"github.com/example/todo-chat-demo/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	return NewStore(NewMemoryRepository(), opts...)
}

func TestStore_CreateTask(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		title   string
		want    string
		invalid bool
	}{
		{name: "plain", title: "milk", want: "milk"},
		{name: "trimmed", title: "  buy bread \t", want: "buy bread"},
		{name: "empty", title: "", invalid: true},
		{name: "whitespace only", title: "   ", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			task, err := s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: tt.title})
			if tt.invalid {
				assert.True(t, apperror.IsValidation(err), "expected validation error, got %v", err)
				return
			}
			require.NoError(t, err)

			found, err := s.GetTask(ctx, "u1", task.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, found.Title)
			assert.False(t, found.Completed)
			assert.False(t, found.CreatedAt.IsZero())
			assert.Equal(t, found.CreatedAt, found.UpdatedAt)
		})
	}
}

func TestStore_CreateTaskWithDetails(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task, err := s.CreateTask(ctx, &CreateTaskRequest{
		UserID:      "u1",
		Title:       "file taxes",
		Description: " before the deadline ",
		DueDate:     "2026-04-15T09:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "before the deadline", task.Description)
	assert.Equal(t, "2026-04-15", task.DueDate)

	_, err = s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: "x", DueDate: "next week"})
	assert.True(t, apperror.IsValidation(err))
}

func TestStore_ListPartitionsByStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		task, err := s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: fmt.Sprintf("task %d", i)})
		require.NoError(t, err)
		if i%2 == 0 {
			_, err = s.SetCompleted(ctx, "u1", task.ID, boolPtr(true))
			require.NoError(t, err)
		}
	}

	all, err := s.ListTasks(ctx, "u1", domain.FilterAll)
	require.NoError(t, err)
	pending, err := s.ListTasks(ctx, "u1", domain.FilterPending)
	require.NoError(t, err)
	completed, err := s.ListTasks(ctx, "u1", domain.FilterCompleted)
	require.NoError(t, err)

	assert.Len(t, all, 5)
	assert.Len(t, pending, 2)
	assert.Len(t, completed, 3)
	assert.Equal(t, len(all), len(pending)+len(completed))

	empty, err := s.ListTasks(ctx, "nobody", domain.FilterAll)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task, err := s.CreateTask(ctx, &CreateTaskRequest{UserID: "alice", Title: "secret"})
	require.NoError(t, err)

	_, err = s.GetTask(ctx, "bob", task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.FindTaskByTitle(ctx, "bob", "secret")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	deleted, err := s.DeleteTask(ctx, "bob", task.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_SetCompletedToggleTwice(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))

	task, err := s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: "flip"})
	require.NoError(t, err)

	once, err := s.SetCompleted(ctx, "u1", task.ID, nil)
	require.NoError(t, err)
	assert.True(t, once.Completed)
	assert.True(t, once.UpdatedAt.After(task.UpdatedAt))

	twice, err := s.SetCompleted(ctx, "u1", task.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, task.Completed, twice.Completed)
	assert.True(t, twice.UpdatedAt.After(once.UpdatedAt))
}

func TestStore_SetCompletedExplicit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task, err := s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: "done"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := s.SetCompleted(ctx, "u1", task.ID, boolPtr(true))
		require.NoError(t, err)
		assert.True(t, got.Completed)
	}

	got, err := s.SetCompleted(ctx, "u1", task.ID, boolPtr(false))
	require.NoError(t, err)
	assert.False(t, got.Completed)

	_, err = s.SetCompleted(ctx, "u1", 4242, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DeleteTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task, err := s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: "temp"})
	require.NoError(t, err)

	deleted, err := s.DeleteTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteTask(ctx, "u1", 12345)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_FindTaskByTitle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	titles := []string{"Buy milk and eggs", "milk", "Call Mom", "call mom later"}
	ids := make(map[string]int64)
	for _, title := range titles {
		task, err := s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: title})
		require.NoError(t, err)
		ids[title] = task.ID
	}

	tests := []struct {
		name   string
		query  string
		wantID int64
	}{
		{name: "exact beats earlier substring", query: "milk", wantID: ids["milk"]},
		{name: "case insensitive exact", query: "  CALL MOM ", wantID: ids["Call Mom"]},
		{name: "substring first id wins", query: "eggs", wantID: ids["Buy milk and eggs"]},
		{name: "substring across tasks", query: "mom l", wantID: ids["call mom later"]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := s.FindTaskByTitle(ctx, "u1", tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, task.ID)
		})
	}

	_, err := s.FindTaskByTitle(ctx, "u1", "bread")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_MilkScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task, err := s.CreateTask(ctx, &CreateTaskRequest{UserID: "u", Title: "milk"})
	require.NoError(t, err)
	require.Equal(t, int64(1), task.ID)

	found, err := s.FindTaskByTitle(ctx, "u", "milk")
	require.NoError(t, err)
	_, err = s.SetCompleted(ctx, "u", found.ID, boolPtr(true))
	require.NoError(t, err)

	completed, err := s.ListTasks(ctx, "u", domain.FilterCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, int64(1), completed[0].ID)
	assert.Equal(t, "milk", completed[0].Title)
	assert.True(t, completed[0].Completed)
}

func TestStore_UpdateTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task, err := s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: "draft", Description: "keep"})
	require.NoError(t, err)

	updated, err := s.UpdateTask(ctx, &UpdateTaskRequest{
		UserID:  "u1",
		TaskID:  task.ID,
		Title:   strPtr(" final "),
		DueDate: strPtr("2026-12-31"),
	})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.Equal(t, "keep", updated.Description)
	assert.Equal(t, "2026-12-31", updated.DueDate)

	_, err = s.UpdateTask(ctx, &UpdateTaskRequest{UserID: "u1", TaskID: task.ID, Title: strPtr("  ")})
	assert.True(t, apperror.IsValidation(err))

	_, err = s.UpdateTask(ctx, &UpdateTaskRequest{UserID: "u1", TaskID: task.ID})
	assert.True(t, apperror.IsValidation(err))

	_, err = s.UpdateTask(ctx, &UpdateTaskRequest{UserID: "u1", TaskID: 999, Title: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	found, err := s.GetTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", found.Title)
}

func TestStore_TaskStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var first *domain.Task
	for _, title := range []string{"a", "b", "c"} {
		task, err := s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: title})
		require.NoError(t, err)
		if first == nil {
			first = task
		}
	}
	_, err := s.SetCompleted(ctx, "u1", first.ID, boolPtr(true))
	require.NoError(t, err)

	stats, err := s.TaskStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Total: 3, Pending: 2, Completed: 1}, stats)
}

func TestStore_ConcurrentCreateYieldsUniqueIDs(t *testing.T) {
	backends := map[string]func(t *testing.T) Repository{
		"memory": func(*testing.T) Repository { return NewMemoryRepository() },
		"sqlite": func(t *testing.T) Repository { return setupTestRepo(t) },
	}

	for name, newRepo := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewStore(newRepo(t))

			const n = 50
			var (
				mu  sync.Mutex
				ids = make(map[int64]bool, n)
			)

			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < n; i++ {
				g.Go(func() error {
					task, err := s.CreateTask(gctx, &CreateTaskRequest{UserID: "u1", Title: fmt.Sprintf("t%d", i)})
					if err != nil {
						return err
					}
					mu.Lock()
					defer mu.Unlock()
					if ids[task.ID] {
						return fmt.Errorf("duplicate id %d", task.ID)
					}
					ids[task.ID] = true
					return nil
				})
			}
			require.NoError(t, g.Wait())

			tasks, err := s.ListTasks(ctx, "u1", domain.FilterAll)
			require.NoError(t, err)
			assert.Len(t, tasks, n)
			assert.Len(t, ids, n)
		})
	}
}

func TestStore_ConcurrentTogglesAreNotLost(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task, err := s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: "contended"})
	require.NoError(t, err)

	const n = 40 // even, so the flag ends where it started
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := s.SetCompleted(ctx, "u1", task.ID, nil)
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err := s.GetTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
}

func TestStore_Notifications(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	s := newTestStore(t, WithNotifier(n))

	task, err := s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: "notify"})
	require.NoError(t, err)
	_, err = s.UpdateTask(ctx, &UpdateTaskRequest{UserID: "u1", TaskID: task.ID, Title: strPtr("renamed")})
	require.NoError(t, err)
	_, err = s.SetCompleted(ctx, "u1", task.ID, nil)
	require.NoError(t, err)
	_, err = s.DeleteTask(ctx, "u1", task.ID)
	require.NoError(t, err)

	// Failed operations notify nobody.
	_, _ = s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: " "})
	_, _ = s.DeleteTask(ctx, "u1", task.ID)

	assert.Equal(t, []string{
		"created:notify",
		"updated:renamed",
		"completion:renamed",
		"deleted:renamed",
	}, n.Events())
}

func TestStore_Metrics(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	s := newTestStore(t, WithMetrics(m))

	_, err := s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: "counted"})
	require.NoError(t, err)
	_, _ = s.CreateTask(ctx, &CreateTaskRequest{UserID: "u1", Title: ""})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TaskOperationsTotal.WithLabelValues("create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TaskOperationsTotal.WithLabelValues("create", "error")))
}
