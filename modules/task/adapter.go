package task

import (
	"context"
	"encoding/json"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// taskAdapter wraps ServiceContainer for type-safe cross-module communication.
// This is the adapter that implements the TaskPort interface.
type taskAdapter struct {
	container mono.ServiceContainer
}

// NewTaskAdapter creates a new adapter for task services.
// container is the ServiceContainer from the task module received via SetDependencyServiceContainer.
func NewTaskAdapter(container mono.ServiceContainer) TaskPort {
	if container == nil {
		panic("task adapter requires non-nil ServiceContainer")
	}
	return &taskAdapter{container: container}
}

// CreateTask creates a new task via the create-task service.
func (a *taskAdapter) CreateTask(ctx context.Context, req *CreateTaskRequest) (*domain.Task, error) {
	var resp TaskResponse
	if err := callService(ctx, a.container, "create-task", req, &resp); err != nil {
		return nil, err
	}
	return fromTaskResponse(&resp)
}

// GetTask retrieves a task by ID via the get-task service.
func (a *taskAdapter) GetTask(ctx context.Context, userID string, taskID int64) (*domain.Task, error) {
	req := GetTaskRequest{UserID: userID, TaskID: taskID}
	var resp TaskResponse
	if err := callService(ctx, a.container, "get-task", &req, &resp); err != nil {
		return nil, err
	}
	return fromTaskResponse(&resp)
}

// FindTaskByTitle looks a task up by title via the find-task service.
func (a *taskAdapter) FindTaskByTitle(ctx context.Context, userID, title string) (*domain.Task, error) {
	req := FindTaskRequest{UserID: userID, Title: title}
	var resp TaskResponse
	if err := callService(ctx, a.container, "find-task", &req, &resp); err != nil {
		return nil, err
	}
	return fromTaskResponse(&resp)
}

// ListTasks lists tasks via the list-tasks service.
func (a *taskAdapter) ListTasks(ctx context.Context, userID string, filter domain.Filter) ([]*domain.Task, error) {
	req := ListTasksRequest{UserID: userID, Status: string(filter)}
	var resp ListTasksResponse
	if err := callService(ctx, a.container, "list-tasks", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Invalid != nil {
		return nil, resp.Invalid
	}
	if resp.Tasks == nil {
		resp.Tasks = []*domain.Task{}
	}
	return resp.Tasks, nil
}

// UpdateTask updates a task via the update-task service.
func (a *taskAdapter) UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*domain.Task, error) {
	var resp TaskResponse
	if err := callService(ctx, a.container, "update-task", req, &resp); err != nil {
		return nil, err
	}
	return fromTaskResponse(&resp)
}

// SetCompleted sets or toggles completion via the complete-task service.
func (a *taskAdapter) SetCompleted(ctx context.Context, userID string, taskID int64, completed *bool) (*domain.Task, error) {
	req := CompleteTaskRequest{UserID: userID, TaskID: taskID, Completed: completed}
	var resp TaskResponse
	if err := callService(ctx, a.container, "complete-task", &req, &resp); err != nil {
		return nil, err
	}
	return fromTaskResponse(&resp)
}

// DeleteTask deletes a task via the delete-task service.
func (a *taskAdapter) DeleteTask(ctx context.Context, userID string, taskID int64) (bool, error) {
	req := DeleteTaskRequest{UserID: userID, TaskID: taskID}
	var resp DeleteTaskResponse
	if err := callService(ctx, a.container, "delete-task", &req, &resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

// TaskStats counts tasks via the task-stats service.
func (a *taskAdapter) TaskStats(ctx context.Context, userID string) (domain.Stats, error) {
	req := TaskStatsRequest{UserID: userID}
	var resp TaskStatsResponse
	if err := callService(ctx, a.container, "task-stats", &req, &resp); err != nil {
		return domain.Stats{}, err
	}
	return resp.Stats, nil
}

// callService invokes a task service. Service failures are storage failures by
// construction, so they come back as persistence errors.
func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return apperror.Persistence(service+" service call", err)
	}
	return nil
}

func fromTaskResponse(resp *TaskResponse) (*domain.Task, error) {
	if resp.Invalid != nil {
		return nil, resp.Invalid
	}
	if !resp.Found || resp.Task == nil {
		return nil, domain.ErrNotFound
	}
	return resp.Task, nil
}
