package task

import (
	"context"
	"sort"
	"sync"

	domain "github.com/example/todo-chat-demo/domain/task"
)

// Repository is the storage port behind the Store. Every method is atomic on
// its own; Mutate runs fn inside the backend's transaction so a failed fn
// leaves the stored task unchanged.
type Repository interface {
	Insert(ctx context.Context, task *domain.Task) error
	FindByID(ctx context.Context, userID string, taskID int64) (*domain.Task, error)
	List(ctx context.Context, userID string, filter domain.Filter) ([]*domain.Task, error)
	Mutate(ctx context.Context, userID string, taskID int64, fn func(*domain.Task) error) (*domain.Task, error)
	Delete(ctx context.Context, userID string, taskID int64) (*domain.Task, error)
	Ping(ctx context.Context) error
	Close() error
}

// MemoryRepository provides in-memory task storage.
type MemoryRepository struct {
	tasks  map[string][]*domain.Task // userID -> tasks ordered by id
	nextID int64
	mu     sync.RWMutex
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates a new in-memory task repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tasks: make(map[string][]*domain.Task),
	}
}

// Insert assigns the next id and stores the task.
func (r *MemoryRepository) Insert(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	task.ID = r.nextID
	r.tasks[task.UserID] = append(r.tasks[task.UserID], task.Clone())
	return nil
}

// FindByID finds a task by ID within the user's collection.
func (r *MemoryRepository) FindByID(_ context.Context, userID string, taskID int64) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, task := r.find(userID, taskID)
	if task == nil {
		return nil, domain.ErrNotFound
	}
	return task.Clone(), nil
}

// List returns the user's tasks matching filter in ascending id order.
func (r *MemoryRepository) List(_ context.Context, userID string, filter domain.Filter) ([]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Task, 0, len(r.tasks[userID]))
	for _, task := range r.tasks[userID] {
		if filter.Match(task) {
			result = append(result, task.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Mutate applies fn to a copy of the task and stores the copy if fn succeeds.
func (r *MemoryRepository) Mutate(_ context.Context, userID string, taskID int64, fn func(*domain.Task) error) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, task := r.find(userID, taskID)
	if task == nil {
		return nil, domain.ErrNotFound
	}
	updated := task.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	r.tasks[userID][idx] = updated
	return updated.Clone(), nil
}

// Delete removes a task and returns what was removed.
func (r *MemoryRepository) Delete(_ context.Context, userID string, taskID int64) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, task := r.find(userID, taskID)
	if task == nil {
		return nil, domain.ErrNotFound
	}
	tasks := r.tasks[userID]
	r.tasks[userID] = append(tasks[:idx:idx], tasks[idx+1:]...)
	if len(r.tasks[userID]) == 0 {
		delete(r.tasks, userID)
	}
	return task, nil
}

// Ping always succeeds for the in-memory backend.
func (r *MemoryRepository) Ping(_ context.Context) error { return nil }

// Close is a no-op for the in-memory backend.
func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) find(userID string, taskID int64) (int, *domain.Task) {
	for i, task := range r.tasks[userID] {
		if task.ID == taskID {
			return i, task
		}
	}
	return -1, nil
}
