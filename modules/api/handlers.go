package api

import (
	"errors"
	"strconv"

	"github.com/example/todo-chat-demo/domain/apperror"
	convdomain "github.com/example/todo-chat-demo/domain/conversation"
	taskdomain "github.com/example/todo-chat-demo/domain/task"
	"github.com/example/todo-chat-demo/modules/chat"
	"github.com/example/todo-chat-demo/modules/task"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)
	if m.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.metrics.Handler()))
	}

	user := app.Group("/api/:user_id")

	tasks := user.Group("/tasks")
	tasks.Get("/", m.listTasks)
	tasks.Post("/", m.createTask)
	tasks.Get("/stats", m.taskStats)
	tasks.Get("/:id", m.getTask)
	tasks.Put("/:id", m.updateTask)
	tasks.Delete("/:id", m.deleteTask)
	tasks.Patch("/:id/complete", m.completeTask)

	user.Post("/chat", m.sendChat)

	conversations := user.Group("/conversations")
	conversations.Get("/:id/messages", m.conversationMessages)
	conversations.Delete("/:id", m.deleteConversation)

	m.setupWebSocket(app)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "ok",
		Details: map[string]any{
			"module": "api",
			"addr":   m.cfg.Addr,
		},
	})
}

// listTasks handles GET /api/:user_id/tasks?status=all|pending|completed.
func (m *APIModule) listTasks(c *fiber.Ctx) error {
	filter, err := taskdomain.ParseFilter(c.Query("status"))
	if err != nil {
		return writeError(c, err)
	}

	tasks, err := m.tasks.ListTasks(c.UserContext(), c.Params("user_id"), filter)
	if err != nil {
		return writeError(c, err)
	}
	if tasks == nil {
		tasks = []*taskdomain.Task{}
	}
	return c.JSON(tasks)
}

// createTask handles POST /api/:user_id/tasks.
func (m *APIModule) createTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	created, err := m.tasks.CreateTask(c.UserContext(), &task.CreateTaskRequest{
		UserID:      c.Params("user_id"),
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// taskStats handles GET /api/:user_id/tasks/stats.
func (m *APIModule) taskStats(c *fiber.Ctx) error {
	stats, err := m.tasks.TaskStats(c.UserContext(), c.Params("user_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stats)
}

// getTask handles GET /api/:user_id/tasks/:id.
func (m *APIModule) getTask(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}

	t, err := m.tasks.GetTask(c.UserContext(), c.Params("user_id"), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(t)
}

// updateTask handles PUT /api/:user_id/tasks/:id.
func (m *APIModule) updateTask(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	t, err := m.tasks.UpdateTask(c.UserContext(), &task.UpdateTaskRequest{
		UserID:      c.Params("user_id"),
		TaskID:      id,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(t)
}

// completeTask handles PATCH /api/:user_id/tasks/:id/complete. The task is
// toggled unless the body names the desired state.
func (m *APIModule) completeTask(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req CompleteTaskRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
	}

	t, err := m.tasks.SetCompleted(c.UserContext(), c.Params("user_id"), id, req.Completed)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(t)
}

// deleteTask handles DELETE /api/:user_id/tasks/:id.
func (m *APIModule) deleteTask(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}

	deleted, err := m.tasks.DeleteTask(c.UserContext(), c.Params("user_id"), id)
	if err != nil {
		return writeError(c, err)
	}
	if !deleted {
		return writeError(c, taskdomain.ErrNotFound)
	}
	return c.JSON(OKResponse{OK: true})
}

// sendChat handles POST /api/:user_id/chat.
func (m *APIModule) sendChat(c *fiber.Ctx) error {
	var req ChatMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	resp, err := m.chat.SendMessage(c.UserContext(), &chat.ChatRequest{
		UserID:         c.Params("user_id"),
		Message:        req.Message,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

// conversationMessages handles GET /api/:user_id/conversations/:id/messages?limit=N.
func (m *APIModule) conversationMessages(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}

	turns, err := m.history.ConversationTurns(c.UserContext(), c.Params("user_id"), id, c.QueryInt("limit", 0))
	if err != nil {
		return writeError(c, err)
	}
	if turns == nil {
		turns = []*convdomain.Turn{}
	}
	return c.JSON(turns)
}

// deleteConversation handles DELETE /api/:user_id/conversations/:id.
func (m *APIModule) deleteConversation(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}

	deleted, err := m.history.DeleteConversation(c.UserContext(), c.Params("user_id"), id)
	if err != nil {
		return writeError(c, err)
	}
	if !deleted {
		return writeError(c, convdomain.ErrNotFound)
	}
	return c.JSON(OKResponse{OK: true})
}

func pathID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewValidationError("id", "id must be a positive integer")
	}
	return id, nil
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request body",
	})
}

// writeError maps domain errors onto HTTP statuses. Anything else is left
// to errorHandler as a 500.
func writeError(c *fiber.Ctx, err error) error {
	var ve *apperror.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: ve.Error(),
		})
	case errors.Is(err, taskdomain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Task not found",
		})
	case errors.Is(err, convdomain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Conversation not found",
		})
	default:
		return err
	}
}
