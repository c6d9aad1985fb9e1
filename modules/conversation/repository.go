package conversation

import (
	"context"
	"sync"
	"time"

	domain "github.com/example/todo-chat-demo/domain/conversation"
)

// Repository persists conversations and their turns. Turns are append-only
// and deleting a conversation removes its turns with it.
type Repository interface {
	Create(ctx context.Context, userID string, at time.Time) (*domain.Conversation, error)
	Get(ctx context.Context, conversationID int64) (*domain.Conversation, error)
	// Latest returns the user's most recently created conversation.
	Latest(ctx context.Context, userID string) (*domain.Conversation, error)
	// Append stores turn, assigns its id and touches the conversation.
	Append(ctx context.Context, turn *domain.Turn) error
	// Recent returns at most limit turns, oldest first.
	Recent(ctx context.Context, conversationID int64, limit int) ([]*domain.Turn, error)
	Delete(ctx context.Context, conversationID int64) error
	Ping(ctx context.Context) error
	Close() error
}

// MemoryRepository keeps conversations in process memory.
type MemoryRepository struct {
	conversations map[int64]*domain.Conversation
	turns         map[int64][]*domain.Turn
	nextConvID    int64
	nextTurnID    int64
	mu            sync.RWMutex
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		conversations: make(map[int64]*domain.Conversation),
		turns:         make(map[int64][]*domain.Turn),
	}
}

func (r *MemoryRepository) Create(_ context.Context, userID string, at time.Time) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextConvID++
	conv := &domain.Conversation{ID: r.nextConvID, UserID: userID, CreatedAt: at, UpdatedAt: at}
	r.conversations[conv.ID] = conv
	c := *conv
	return &c, nil
}

func (r *MemoryRepository) Get(_ context.Context, conversationID int64) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[conversationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *conv
	return &c, nil
}

func (r *MemoryRepository) Latest(_ context.Context, userID string) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Conversation
	for _, conv := range r.conversations {
		if conv.UserID == userID && (latest == nil || conv.ID > latest.ID) {
			latest = conv
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	c := *latest
	return &c, nil
}

func (r *MemoryRepository) Append(_ context.Context, turn *domain.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[turn.ConversationID]
	if !ok {
		return domain.ErrNotFound
	}
	r.nextTurnID++
	turn.ID = r.nextTurnID
	t := *turn
	r.turns[conv.ID] = append(r.turns[conv.ID], &t)
	conv.UpdatedAt = turn.CreatedAt
	return nil
}

func (r *MemoryRepository) Recent(_ context.Context, conversationID int64, limit int) ([]*domain.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	turns := r.turns[conversationID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	result := make([]*domain.Turn, 0, len(turns))
	for _, turn := range turns {
		t := *turn
		result = append(result, &t)
	}
	return result, nil
}

func (r *MemoryRepository) Delete(_ context.Context, conversationID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[conversationID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.conversations, conversationID)
	delete(r.turns, conversationID)
	return nil
}

func (r *MemoryRepository) Ping(_ context.Context) error { return nil }

func (r *MemoryRepository) Close() error { return nil }
