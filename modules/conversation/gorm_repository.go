package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/conversation"
	"gorm.io/gorm"
)

type conversationRecord struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	UserID    string          `gorm:"size:128;index;not null"`
	CreatedAt time.Time       `gorm:"autoCreateTime:false;not null"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime:false;not null"`
	Messages  []messageRecord `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

func (conversationRecord) TableName() string {
	return "conversations"
}

func (r *conversationRecord) toDomain() *domain.Conversation {
	return &domain.Conversation{
		ID:        r.ID,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type messageRecord struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	ConversationID int64     `gorm:"index;not null"`
	Role           string    `gorm:"size:20;not null"`
	Content        string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime:false;not null"`
}

func (messageRecord) TableName() string {
	return "messages"
}

func (r *messageRecord) toDomain() *domain.Turn {
	return &domain.Turn{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Role:           domain.Role(r.Role),
		Content:        r.Content,
		CreatedAt:      r.CreatedAt,
	}
}

// GormRepository stores conversations in the conversations and messages tables.
type GormRepository struct {
	db *gorm.DB
}

var _ Repository = (*GormRepository)(nil)

// NewGormRepository creates a repository and migrates its tables.
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&conversationRecord{}, &messageRecord{}); err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to migrate conversation tables: %w", err)
	}
	return &GormRepository{db: db}, nil
}

func (r *GormRepository) Create(ctx context.Context, userID string, at time.Time) (*domain.Conversation, error) {
	rec := conversationRecord{UserID: userID, CreatedAt: at, UpdatedAt: at}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, apperror.Persistence("create conversation", err)
	}
	return rec.toDomain(), nil
}

func (r *GormRepository) Get(ctx context.Context, conversationID int64) (*domain.Conversation, error) {
	var rec conversationRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", conversationID).Error; err != nil {
		return nil, notFoundOr("get conversation", err)
	}
	return rec.toDomain(), nil
}

func (r *GormRepository) Latest(ctx context.Context, userID string) (*domain.Conversation, error) {
	var rec conversationRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		First(&rec).Error
	if err != nil {
		return nil, notFoundOr("latest conversation", err)
	}
	return rec.toDomain(), nil
}

// Append inserts the message and touches the conversation in one transaction.
func (r *GormRepository) Append(ctx context.Context, turn *domain.Turn) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&conversationRecord{}).
			Where("id = ?", turn.ConversationID).
			Update("updated_at", turn.CreatedAt)
		if res.Error != nil {
			return apperror.Persistence("touch conversation", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		rec := messageRecord{
			ConversationID: turn.ConversationID,
			Role:           string(turn.Role),
			Content:        turn.Content,
			CreatedAt:      turn.CreatedAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return apperror.Persistence("append message", err)
		}
		turn.ID = rec.ID
		return nil
	})
}

func (r *GormRepository) Recent(ctx context.Context, conversationID int64, limit int) ([]*domain.Turn, error) {
	q := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var recs []messageRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, apperror.Persistence("recent messages", err)
	}

	// Newest-first from the query; callers get oldest first.
	turns := make([]*domain.Turn, len(recs))
	for i := range recs {
		turns[len(recs)-1-i] = recs[i].toDomain()
	}
	return turns, nil
}

// Delete removes a conversation and its messages.
func (r *GormRepository) Delete(ctx context.Context, conversationID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&messageRecord{}).Error; err != nil {
			return apperror.Persistence("delete messages", err)
		}
		res := tx.Delete(&conversationRecord{}, "id = ?", conversationID)
		if res.Error != nil {
			return apperror.Persistence("delete conversation", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return apperror.Persistence(op, err)
}
