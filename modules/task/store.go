package task

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/task"
	"github.com/example/todo-chat-demo/metrics"
	"github.com/example/todo-chat-demo/pkg/userlock"
)

// Store is the task store. It validates input, stamps timestamps, serializes
// mutations per user and reports changes to its Notifier once they are stored.
type Store struct {
	repo     Repository
	locks    *userlock.Locker
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

var _ TaskPort = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithNotifier sets the receiver of task change notifications.
func WithNotifier(n Notifier) StoreOption {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithMetrics records every operation on m.
func WithMetrics(m *metrics.Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates a Store on top of repo.
func NewStore(repo Repository, opts ...StoreOption) *Store {
	s := &Store{
		repo:     repo,
		locks:    userlock.New(),
		notifier: nopNotifier{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository returns the backing repository.
func (s *Store) Repository() Repository {
	return s.repo
}

// CreateTask validates and stores a new pending task.
func (s *Store) CreateTask(ctx context.Context, req *CreateTaskRequest) (task *domain.Task, err error) {
	defer func() { s.metrics.RecordTaskOperation("create", err) }()

	title, err := domain.NormalizeTitle(req.Title)
	if err != nil {
		return nil, err
	}
	dueDate, err := domain.NormalizeDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(req.UserID)
	defer unlock()

	now := s.now()
	task = &domain.Task{
		UserID:      req.UserID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, task); err != nil {
		return nil, err
	}

	s.notifier.TaskCreated(ctx, task)
	return task.Clone(), nil
}

// GetTask returns the user's task with the given id.
func (s *Store) GetTask(ctx context.Context, userID string, taskID int64) (*domain.Task, error) {
	return s.repo.FindByID(ctx, userID, taskID)
}

// FindTaskByTitle looks a task up by title, ignoring case and surrounding
// whitespace. An exact match wins; otherwise the first task whose title
// contains the text is returned. Ties go to the lowest id.
func (s *Store) FindTaskByTitle(ctx context.Context, userID, title string) (*domain.Task, error) {
	needle, err := domain.NormalizeTitle(title)
	if err != nil {
		return nil, err
	}
	needle = strings.ToLower(needle)

	tasks, err := s.repo.List(ctx, userID, domain.FilterAll)
	if err != nil {
		return nil, err
	}

	for _, t := range tasks {
		if strings.ToLower(t.Title) == needle {
			return t, nil
		}
	}
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), needle) {
			return t, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListTasks returns the user's tasks matching filter in ascending id order.
func (s *Store) ListTasks(ctx context.Context, userID string, filter domain.Filter) ([]*domain.Task, error) {
	if filter == "" {
		filter = domain.FilterAll
	}
	return s.repo.List(ctx, userID, filter)
}

// UpdateTask changes title, description or due date.
func (s *Store) UpdateTask(ctx context.Context, req *UpdateTaskRequest) (task *domain.Task, err error) {
	defer func() { s.metrics.RecordTaskOperation("update", err) }()

	if req.Title == nil && req.Description == nil && req.DueDate == nil {
		return nil, apperror.NewValidationError("", "nothing to update")
	}

	var title, dueDate string
	if req.Title != nil {
		if title, err = domain.NormalizeTitle(*req.Title); err != nil {
			return nil, err
		}
	}
	if req.DueDate != nil {
		if dueDate, err = domain.NormalizeDueDate(*req.DueDate); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.Lock(req.UserID)
	defer unlock()

	task, err = s.repo.Mutate(ctx, req.UserID, req.TaskID, func(t *domain.Task) error {
		if req.Title != nil {
			t.Title = title
		}
		if req.Description != nil {
			t.Description = strings.TrimSpace(*req.Description)
		}
		if req.DueDate != nil {
			t.DueDate = dueDate
		}
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.TaskUpdated(ctx, task)
	return task, nil
}

// SetCompleted sets the completion flag to *completed, or flips it when
// completed is nil.
func (s *Store) SetCompleted(ctx context.Context, userID string, taskID int64, completed *bool) (task *domain.Task, err error) {
	defer func() { s.metrics.RecordTaskOperation("complete", err) }()

	unlock := s.locks.Lock(userID)
	defer unlock()

	task, err = s.repo.Mutate(ctx, userID, taskID, func(t *domain.Task) error {
		if completed == nil {
			t.Completed = !t.Completed
		} else {
			t.Completed = *completed
		}
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.TaskCompletionChanged(ctx, task)
	return task, nil
}

// DeleteTask hard-deletes a task. It reports false without an error when the
// task does not exist.
func (s *Store) DeleteTask(ctx context.Context, userID string, taskID int64) (deleted bool, err error) {
	defer func() { s.metrics.RecordTaskOperation("delete", err) }()

	unlock := s.locks.Lock(userID)
	defer unlock()

	task, err := s.repo.Delete(ctx, userID, taskID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.notifier.TaskDeleted(ctx, task)
	return true, nil
}

// TaskStats counts the user's tasks.
func (s *Store) TaskStats(ctx context.Context, userID string) (domain.Stats, error) {
	tasks, err := s.repo.List(ctx, userID, domain.FilterAll)
	if err != nil {
		return domain.Stats{}, err
	}

	stats := domain.Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	return stats, nil
}
