package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/conversation"
)

// History is the conversation history service. Every conversation belongs to
// exactly one user and callers can only reach their own.
type History struct {
	repo Repository
	now  func() time.Time
}

var _ HistoryPort = (*History)(nil)

// NewHistory creates a History on top of repo.
func NewHistory(repo Repository) *History {
	return &History{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Repository returns the backing repository.
func (h *History) Repository() Repository {
	return h.repo
}

// GetOrCreateConversation reuses requestedID when it belongs to userID.
// An unknown or foreign id yields a fresh conversation. Without an id the
// user's latest conversation is reused, or one is created.
func (h *History) GetOrCreateConversation(ctx context.Context, userID string, requestedID *int64) (*domain.Conversation, error) {
	if requestedID != nil {
		conv, err := h.repo.Get(ctx, *requestedID)
		switch {
		case err == nil && conv.UserID == userID:
			return conv, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		return h.repo.Create(ctx, userID, h.now())
	}

	conv, err := h.repo.Latest(ctx, userID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return h.repo.Create(ctx, userID, h.now())
}

// AppendTurn appends one turn to the conversation.
func (h *History) AppendTurn(ctx context.Context, conversationID int64, role domain.Role, content string) (*domain.Turn, error) {
	if !role.Valid() {
		return nil, apperror.NewValidationError("role", "role must be user or assistant")
	}
	turn := &domain.Turn{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      h.now(),
	}
	if err := h.repo.Append(ctx, turn); err != nil {
		return nil, err
	}
	return turn, nil
}

// RecentTurns returns at most limit turns, oldest first. A limit <= 0 returns all.
func (h *History) RecentTurns(ctx context.Context, conversationID int64, limit int) ([]*domain.Turn, error) {
	return h.repo.Recent(ctx, conversationID, limit)
}

// ConversationTurns is RecentTurns restricted to the owner of the conversation.
func (h *History) ConversationTurns(ctx context.Context, userID string, conversationID int64, limit int) ([]*domain.Turn, error) {
	if _, err := h.owned(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return h.repo.Recent(ctx, conversationID, limit)
}

// DeleteConversation removes the user's conversation and its turns. It
// reports false when the conversation does not exist or belongs to someone else.
func (h *History) DeleteConversation(ctx context.Context, userID string, conversationID int64) (bool, error) {
	if _, err := h.owned(ctx, userID, conversationID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := h.repo.Delete(ctx, conversationID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (h *History) owned(ctx context.Context, userID string, conversationID int64) (*domain.Conversation, error) {
	conv, err := h.repo.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return conv, nil
}
