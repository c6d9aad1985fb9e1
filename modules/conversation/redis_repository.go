package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/conversation"
	"github.com/redis/go-redis/v9"
)

// RedisRepository stores conversations in Redis:
//
//	<prefix>conversation:seq            INCR counter for conversation ids
//	<prefix>turn:seq                    INCR counter for turn ids
//	<prefix>conversation:<id>           hash {user_id, created_at, updated_at}
//	<prefix>conversation:<id>:turns     list of JSON turns, oldest first
//	<prefix>user:<user_id>:conversations sorted set of conversation ids
type RedisRepository struct {
	client *redis.Client
	prefix string
}

var _ Repository = (*RedisRepository)(nil)

// NewRedisRepository creates a repository on client. prefix namespaces all keys.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) conversationKey(id int64) string {
	return r.prefix + "conversation:" + strconv.FormatInt(id, 10)
}

func (r *RedisRepository) turnsKey(id int64) string {
	return r.conversationKey(id) + ":turns"
}

func (r *RedisRepository) userKey(userID string) string {
	return r.prefix + "user:" + userID + ":conversations"
}

func (r *RedisRepository) Create(ctx context.Context, userID string, at time.Time) (*domain.Conversation, error) {
	id, err := r.client.Incr(ctx, r.prefix+"conversation:seq").Result()
	if err != nil {
		return nil, apperror.Persistence("create conversation", err)
	}

	stamp := at.Format(time.RFC3339Nano)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.conversationKey(id),
			"user_id", userID,
			"created_at", stamp,
			"updated_at", stamp,
		)
		pipe.ZAdd(ctx, r.userKey(userID), redis.Z{Score: float64(id), Member: id})
		return nil
	})
	if err != nil {
		return nil, apperror.Persistence("create conversation", err)
	}
	return &domain.Conversation{ID: id, UserID: userID, CreatedAt: at, UpdatedAt: at}, nil
}

func (r *RedisRepository) Get(ctx context.Context, conversationID int64) (*domain.Conversation, error) {
	fields, err := r.client.HGetAll(ctx, r.conversationKey(conversationID)).Result()
	if err != nil {
		return nil, apperror.Persistence("get conversation", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}

	conv := &domain.Conversation{ID: conversationID, UserID: fields["user_id"]}
	if conv.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, apperror.Persistence("get conversation", err)
	}
	if conv.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, apperror.Persistence("get conversation", err)
	}
	return conv, nil
}

func (r *RedisRepository) Latest(ctx context.Context, userID string) (*domain.Conversation, error) {
	ids, err := r.client.ZRevRange(ctx, r.userKey(userID), 0, 0).Result()
	if err != nil {
		return nil, apperror.Persistence("latest conversation", err)
	}
	if len(ids) == 0 {
		return nil, domain.ErrNotFound
	}
	id, err := strconv.ParseInt(ids[0], 10, 64)
	if err != nil {
		return nil, apperror.Persistence("latest conversation", err)
	}
	return r.Get(ctx, id)
}

func (r *RedisRepository) Append(ctx context.Context, turn *domain.Turn) error {
	exists, err := r.client.Exists(ctx, r.conversationKey(turn.ConversationID)).Result()
	if err != nil {
		return apperror.Persistence("append turn", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}

	id, err := r.client.Incr(ctx, r.prefix+"turn:seq").Result()
	if err != nil {
		return apperror.Persistence("append turn", err)
	}
	turn.ID = id

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, r.turnsKey(turn.ConversationID), data)
		pipe.HSet(ctx, r.conversationKey(turn.ConversationID), "updated_at", turn.CreatedAt.Format(time.RFC3339Nano))
		return nil
	})
	if err != nil {
		return apperror.Persistence("append turn", err)
	}
	return nil
}

func (r *RedisRepository) Recent(ctx context.Context, conversationID int64, limit int) ([]*domain.Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	items, err := r.client.LRange(ctx, r.turnsKey(conversationID), start, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, apperror.Persistence("recent turns", err)
	}

	turns := make([]*domain.Turn, 0, len(items))
	for _, item := range items {
		var turn domain.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, apperror.Persistence("recent turns", err)
		}
		turns = append(turns, &turn)
	}
	return turns, nil
}

func (r *RedisRepository) Delete(ctx context.Context, conversationID int64) error {
	conv, err := r.Get(ctx, conversationID)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.conversationKey(conversationID), r.turnsKey(conversationID))
		pipe.ZRem(ctx, r.userKey(conv.UserID), conversationID)
		return nil
	})
	if err != nil {
		return apperror.Persistence("delete conversation", err)
	}
	return nil
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
