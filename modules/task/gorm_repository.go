package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/task"
	"gorm.io/gorm"
)

// taskRecord is the GORM model for the tasks table. Timestamps are written by
// the Store so GORM's automatic time tracking is disabled.
type taskRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	UserID      string    `gorm:"size:128;index;not null"`
	Title       string    `gorm:"size:500;not null"`
	Description string    `gorm:"type:text"`
	DueDate     string    `gorm:"size:10"`
	Completed   bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false;not null"`
}

// TableName returns the table name for taskRecord.
func (taskRecord) TableName() string {
	return "tasks"
}

func newTaskRecord(t *domain.Task) *taskRecord {
	return &taskRecord{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (r *taskRecord) toDomain() *domain.Task {
	return &domain.Task{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		Completed:   r.Completed,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// GormRepository stores tasks through GORM (SQLite in this service).
type GormRepository struct {
	db *gorm.DB
}

var _ Repository = (*GormRepository)(nil)

// NewGormRepository creates a repository and migrates the tasks table.
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&taskRecord{}); err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to migrate tasks table: %w", err)
	}
	return &GormRepository{db: db}, nil
}

// Insert saves a new task; the database assigns the id.
func (r *GormRepository) Insert(ctx context.Context, task *domain.Task) error {
	rec := newTaskRecord(task)
	rec.ID = 0
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return apperror.Persistence("insert task", err)
	}
	task.ID = rec.ID
	return nil
}

// FindByID retrieves a task by id within the user's collection.
func (r *GormRepository) FindByID(ctx context.Context, userID string, taskID int64) (*domain.Task, error) {
	rec, err := findTaskRecord(r.db.WithContext(ctx), userID, taskID)
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

// List retrieves the user's tasks in ascending id order.
func (r *GormRepository) List(ctx context.Context, userID string, filter domain.Filter) ([]*domain.Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	switch filter {
	case domain.FilterPending:
		q = q.Where("completed = ?", false)
	case domain.FilterCompleted:
		q = q.Where("completed = ?", true)
	}

	var recs []taskRecord
	if err := q.Order("id asc").Find(&recs).Error; err != nil {
		return nil, apperror.Persistence("list tasks", err)
	}

	tasks := make([]*domain.Task, 0, len(recs))
	for i := range recs {
		tasks = append(tasks, recs[i].toDomain())
	}
	return tasks, nil
}

// Mutate loads, modifies and saves a task inside one transaction.
func (r *GormRepository) Mutate(ctx context.Context, userID string, taskID int64, fn func(*domain.Task) error) (*domain.Task, error) {
	var updated *domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findTaskRecord(tx, userID, taskID)
		if err != nil {
			return err
		}
		task := rec.toDomain()
		if err := fn(task); err != nil {
			return err
		}
		if err := tx.Save(newTaskRecord(task)).Error; err != nil {
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

// Delete hard-deletes a task inside one transaction.
func (r *GormRepository) Delete(ctx context.Context, userID string, taskID int64) (*domain.Task, error) {
	var deleted *domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findTaskRecord(tx, userID, taskID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&taskRecord{}, "id = ? AND user_id = ?", taskID, userID).Error; err != nil {
			return apperror.Persistence("delete task", err)
		}
		deleted = rec.toDomain()
		return nil
	})
	if err != nil {
		return nil, classifyTxError("delete task", err)
	}
	return deleted, nil
}

// Ping checks the underlying connection.
func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func findTaskRecord(db *gorm.DB, userID string, taskID int64) (*taskRecord, error) {
	var rec taskRecord
	if err := db.First(&rec, "id = ? AND user_id = ?", taskID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, apperror.Persistence("find task", err)
	}
	return &rec, nil
}

// classifyTxError keeps domain errors returned from inside a transaction as
// they are and wraps anything else (commit/begin failures) as persistence errors.
func classifyTxError(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || apperror.IsValidation(err) || apperror.IsPersistence(err) {
		return err
	}
	return apperror.Persistence(op, err)
}
