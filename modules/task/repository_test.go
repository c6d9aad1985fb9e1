package task

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/example/todo-chat-demo/domain/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRepositoryContract exercises the behaviour every Repository backend
// must share. userID must be unique to the calling test.
func testRepositoryContract(t *testing.T, repo Repository, userID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	newTask := func(title string) *domain.Task {
		return &domain.Task{UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}
	}

	t.Run("insert assigns increasing ids", func(t *testing.T) {
		a, b := newTask("alpha"), newTask("beta")
		require.NoError(t, repo.Insert(ctx, a))
		require.NoError(t, repo.Insert(ctx, b))
		assert.Positive(t, a.ID)
		assert.Greater(t, b.ID, a.ID)
	})

	t.Run("find by id is scoped to the user", func(t *testing.T) {
		task := newTask("scoped")
		require.NoError(t, repo.Insert(ctx, task))

		found, err := repo.FindByID(ctx, userID, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "scoped", found.Title)
		assert.False(t, found.Completed)

		_, err = repo.FindByID(ctx, userID+"-other", task.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list filters and orders by id", func(t *testing.T) {
		task := newTask("done")
		require.NoError(t, repo.Insert(ctx, task))
		_, err := repo.Mutate(ctx, userID, task.ID, func(t *domain.Task) error {
			t.Completed = true
			return nil
		})
		require.NoError(t, err)

		all, err := repo.List(ctx, userID, domain.FilterAll)
		require.NoError(t, err)
		pending, err := repo.List(ctx, userID, domain.FilterPending)
		require.NoError(t, err)
		completed, err := repo.List(ctx, userID, domain.FilterCompleted)
		require.NoError(t, err)

		assert.Len(t, all, len(pending)+len(completed))
		require.Len(t, completed, 1)
		assert.Equal(t, task.ID, completed[0].ID)
		for i := 1; i < len(all); i++ {
			assert.Less(t, all[i-1].ID, all[i].ID)
		}
	})

	t.Run("list of unknown user is empty", func(t *testing.T) {
		tasks, err := repo.List(ctx, userID+"-nobody", domain.FilterAll)
		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	})

	t.Run("failed mutation leaves task unchanged", func(t *testing.T) {
		task := newTask("stable")
		require.NoError(t, repo.Insert(ctx, task))

		boom := errors.New("boom")
		_, err := repo.Mutate(ctx, userID, task.ID, func(t *domain.Task) error {
			t.Title = "changed"
			return boom
		})
		assert.ErrorIs(t, err, boom)

		found, err := repo.FindByID(ctx, userID, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "stable", found.Title)
	})

	t.Run("mutate of missing task", func(t *testing.T) {
		_, err := repo.Mutate(ctx, userID, 999999999, func(*domain.Task) error { return nil })
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete returns the removed task once", func(t *testing.T) {
		task := newTask("gone")
		require.NoError(t, repo.Insert(ctx, task))

		deleted, err := repo.Delete(ctx, userID, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "gone", deleted.Title)

		_, err = repo.Delete(ctx, userID, task.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ids are not reused after delete", func(t *testing.T) {
		first := newTask("first")
		require.NoError(t, repo.Insert(ctx, first))
		_, err := repo.Delete(ctx, userID, first.ID)
		require.NoError(t, err)

		second := newTask("second")
		require.NoError(t, repo.Insert(ctx, second))
		assert.Greater(t, second.ID, first.ID)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})
}

func TestMemoryRepository(t *testing.T) {
	testRepositoryContract(t, NewMemoryRepository(), "memory-user")
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	task := &domain.Task{UserID: "u1", Title: "original"}
	require.NoError(t, repo.Insert(ctx, task))
	task.Title = "mutated by caller"

	found, err := repo.FindByID(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", found.Title)

	found.Title = "mutated again"
	again, err := repo.FindByID(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Title)
}

func TestOpenRepository(t *testing.T) {
	ctx := context.Background()

	repo, err := OpenRepository(ctx, "memory", false)
	require.NoError(t, err)
	assert.IsType(t, &MemoryRepository{}, repo)

	repo, err = OpenRepository(ctx, "sqlite:///:memory:", false)
	require.NoError(t, err)
	assert.IsType(t, &GormRepository{}, repo)
	require.NoError(t, repo.Close())

	_, err = OpenRepository(ctx, "", false)
	assert.Error(t, err)
}

func TestBackendName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"memory", "memory"},
		{"postgres://u:p@localhost/db", "postgres"},
		{"postgresql://u:p@localhost/db", "postgres"},
		{"sqlite:///./dev.db", "sqlite"},
		{"todo.db", "sqlite"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BackendName(tt.url), tt.url)
	}
}
