package task

import (
	"strings"
	"time"

	"github.com/example/todo-chat-demo/domain/apperror"
)

// dueDateLayout is the normalized storage format of Task.DueDate.
const dueDateLayout = "2006-01-02"

// Task is the core domain entity representing a todo item.
type Task struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     string    `json:"due_date,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a copy that can be handed out without aliasing store state.
func (t *Task) Clone() *Task {
	c := *t
	return &c
}

// Stats summarizes a user's collection.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

// NormalizeTitle trims a title and rejects empty results.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperror.NewValidationError("title", "title is required")
	}
	return title, nil
}

// NormalizeDueDate accepts YYYY-MM-DD or RFC 3339 and returns YYYY-MM-DD.
// An empty input stays empty.
func NormalizeDueDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if d, err := time.Parse(dueDateLayout, raw); err == nil {
		return d.Format(dueDateLayout), nil
	}
	if d, err := time.Parse(time.RFC3339, raw); err == nil {
		return d.Format(dueDateLayout), nil
	}
	return "", apperror.NewValidationError("due_date", "due_date must be YYYY-MM-DD or RFC 3339")
}
