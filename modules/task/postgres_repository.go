package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/task"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	user_id     TEXT        NOT NULL,
	title       TEXT        NOT NULL,
	description TEXT        NOT NULL DEFAULT '',
	due_date    TEXT        NOT NULL DEFAULT '',
	completed   BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS tasks_user_id_idx ON tasks (user_id);
`

const taskColumns = `id, user_id, title, description, due_date, completed, created_at, updated_at`

// PostgresRepository stores tasks in PostgreSQL through a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository connects to databaseURL and ensures the schema exists.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate tasks table: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

// Insert saves a new task; the identity column assigns the id.
func (r *PostgresRepository) Insert(ctx context.Context, task *domain.Task) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (user_id, title, description, due_date, completed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		task.UserID, task.Title, task.Description, task.DueDate, task.Completed, task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID)
	if err != nil {
		return apperror.Persistence("insert task", err)
	}
	return nil
}

// FindByID retrieves a task by id within the user's collection.
func (r *PostgresRepository) FindByID(ctx context.Context, userID string, taskID int64) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID)
	return scanTask(row, "find task")
}

// List retrieves the user's tasks in ascending id order.
func (r *PostgresRepository) List(ctx context.Context, userID string, filter domain.Filter) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}
	switch filter {
	case domain.FilterPending:
		query += ` AND completed = FALSE`
	case domain.FilterCompleted:
		query += ` AND completed = TRUE`
	}
	query += ` ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.Persistence("list tasks", err)
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows, "list tasks")
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Persistence("list tasks", err)
	}
	return tasks, nil
}

// Mutate locks the row, applies fn and writes it back in one transaction.
func (r *PostgresRepository) Mutate(ctx context.Context, userID string, taskID int64, fn func(*domain.Task) error) (*domain.Task, error) {
	var updated *domain.Task
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2 FOR UPDATE`, taskID, userID)
		task, err := scanTask(row, "find task")
		if err != nil {
			return err
		}
		if err := fn(task); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE tasks SET title = $1, description = $2, due_date = $3, completed = $4, updated_at = $5
			 WHERE id = $6 AND user_id = $7`,
			task.Title, task.Description, task.DueDate, task.Completed, task.UpdatedAt, task.ID, task.UserID)
		if err != nil {
			return apperror.Persistence("update task", err)
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, classifyTxError("update task", err)
	}
	return updated, nil
}

// Delete hard-deletes a task and returns the removed row.
func (r *PostgresRepository) Delete(ctx context.Context, userID string, taskID int64) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2 RETURNING `+taskColumns, taskID, userID)
	return scanTask(row, "delete task")
}

// Ping checks the pool.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanTask(row pgx.Row, op string) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.DueDate, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, apperror.Persistence(op, err)
	}
	return &t, nil
}
