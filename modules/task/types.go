package task

import (
	"context"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/task"
)

// CreateTaskRequest is the request for creating a task.
type CreateTaskRequest struct {
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

// UpdateTaskRequest changes title, description or due date. Nil fields are
// left untouched.
type UpdateTaskRequest struct {
	UserID      string  `json:"user_id"`
	TaskID      int64   `json:"task_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

// GetTaskRequest is the request for getting a task by id.
type GetTaskRequest struct {
	UserID string `json:"user_id"`
	TaskID int64  `json:"task_id"`
}

// FindTaskRequest is the request for looking a task up by title.
type FindTaskRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
}

// ListTasksRequest is the request for listing tasks.
type ListTasksRequest struct {
	UserID string `json:"user_id"`
	Status string `json:"status,omitempty"`
}

// CompleteTaskRequest sets or toggles completion. A nil Completed toggles.
type CompleteTaskRequest struct {
	UserID    string `json:"user_id"`
	TaskID    int64  `json:"task_id"`
	Completed *bool  `json:"completed,omitempty"`
}

// DeleteTaskRequest is the request for deleting a task.
type DeleteTaskRequest struct {
	UserID string `json:"user_id"`
	TaskID int64  `json:"task_id"`
}

// TaskStatsRequest is the request for a user's task counters.
type TaskStatsRequest struct {
	UserID string `json:"user_id"`
}

// TaskResponse carries a single task. Found is false when the task does not
// exist; Invalid is set when the request was rejected.
type TaskResponse struct {
	Found   bool                      `json:"found"`
	Task    *domain.Task              `json:"task,omitempty"`
	Invalid *apperror.ValidationError `json:"invalid,omitempty"`
}

// ListTasksResponse is the response for listing tasks.
type ListTasksResponse struct {
	Tasks   []*domain.Task            `json:"tasks"`
	Total   int                       `json:"total"`
	Invalid *apperror.ValidationError `json:"invalid,omitempty"`
}

// DeleteTaskResponse is the response for deleting a task.
type DeleteTaskResponse struct {
	Deleted bool `json:"deleted"`
}

// TaskStatsResponse is the response for task counters.
type TaskStatsResponse struct {
	Stats domain.Stats `json:"stats"`
}

// TaskPort is the contract callers use to reach the task store. It is
// implemented by *Store in-process and by the service adapter across modules;
// both return domain.ErrNotFound, *apperror.ValidationError and
// *apperror.PersistenceError the same way.
type TaskPort interface {
	CreateTask(ctx context.Context, req *CreateTaskRequest) (*domain.Task, error)
	GetTask(ctx context.Context, userID string, taskID int64) (*domain.Task, error)
	FindTaskByTitle(ctx context.Context, userID, title string) (*domain.Task, error)
	ListTasks(ctx context.Context, userID string, filter domain.Filter) ([]*domain.Task, error)
	UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*domain.Task, error)
	SetCompleted(ctx context.Context, userID string, taskID int64, completed *bool) (*domain.Task, error)
	DeleteTask(ctx context.Context, userID string, taskID int64) (bool, error)
	TaskStats(ctx context.Context, userID string) (domain.Stats, error)
}
