package task

import (
	"context"
	"errors"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/task"
	"github.com/go-monolith/mono"
)

// createTask handles the create-task service request.
func (m *TaskModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	return toTaskResponse(m.store.CreateTask(ctx, &req))
}

// getTask handles the get-task service request.
func (m *TaskModule) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	return toTaskResponse(m.store.GetTask(ctx, req.UserID, req.TaskID))
}

// findTask handles the find-task service request.
func (m *TaskModule) findTask(ctx context.Context, req FindTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	return toTaskResponse(m.store.FindTaskByTitle(ctx, req.UserID, req.Title))
}

// listTasks handles the list-tasks service request.
func (m *TaskModule) listTasks(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	filter, err := domain.ParseFilter(req.Status)
	if err != nil {
		return ListTasksResponse{Invalid: asValidation(err)}, nil
	}

	tasks, err := m.store.ListTasks(ctx, req.UserID, filter)
	if err != nil {
		return ListTasksResponse{}, err
	}
	return ListTasksResponse{Tasks: tasks, Total: len(tasks)}, nil
}

// updateTask handles the update-task service request.
func (m *TaskModule) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	return toTaskResponse(m.store.UpdateTask(ctx, &req))
}

// completeTask handles the complete-task service request.
func (m *TaskModule) completeTask(ctx context.Context, req CompleteTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	return toTaskResponse(m.store.SetCompleted(ctx, req.UserID, req.TaskID, req.Completed))
}

// deleteTask handles the delete-task service request.
func (m *TaskModule) deleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	deleted, err := m.store.DeleteTask(ctx, req.UserID, req.TaskID)
	if err != nil {
		return DeleteTaskResponse{}, err
	}
	return DeleteTaskResponse{Deleted: deleted}, nil
}

// taskStats handles the task-stats service request.
func (m *TaskModule) taskStats(ctx context.Context, req TaskStatsRequest, _ *mono.Msg) (TaskStatsResponse, error) {
	stats, err := m.store.TaskStats(ctx, req.UserID)
	if err != nil {
		return TaskStatsResponse{}, err
	}
	return TaskStatsResponse{Stats: stats}, nil
}

// toTaskResponse folds not-found and validation failures into the response so
// only persistence failures travel as service errors.
func toTaskResponse(task *domain.Task, err error) (TaskResponse, error) {
	switch {
	case err == nil:
		return TaskResponse{Found: true, Task: task}, nil
	case errors.Is(err, domain.ErrNotFound):
		return TaskResponse{}, nil
	case apperror.IsValidation(err):
		return TaskResponse{Invalid: asValidation(err)}, nil
	default:
		return TaskResponse{}, err
	}
}

func asValidation(err error) *apperror.ValidationError {
	var ve *apperror.ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return apperror.NewValidationError("", err.Error())
}
