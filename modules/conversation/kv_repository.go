package conversation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/example/todo-chat-demo/domain/apperror"
	domain "github.com/example/todo-chat-demo/domain/conversation"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
)

// KVBucket is the kv-jetstream bucket holding conversation history.
const KVBucket = "conversations"

// maxCASAttempts bounds optimistic retries when two writers race on a key.
const maxCASAttempts = 16

// KVRepository stores conversations in a JetStream KV bucket:
//
//	seq.conversation      last conversation id
//	seq.turn              last turn id
//	conversation.<id>     JSON conversation with its turns, oldest first
//	user.<base64 user id> JSON list of the user's conversation ids
//
// Every write is a compare-and-set on the key revision.
type KVRepository struct {
	bucket kvjetstream.KVStoragePort
}

var _ Repository = (*KVRepository)(nil)

type kvConversation struct {
	domain.Conversation
	Turns []*domain.Turn `json:"turns"`
}

// NewKVRepository creates a repository on bucket.
func NewKVRepository(bucket kvjetstream.KVStoragePort) *KVRepository {
	return &KVRepository{bucket: bucket}
}

func kvConversationKey(id int64) string {
	return "conversation." + strconv.FormatInt(id, 10)
}

// User ids are free text; KV keys are not.
func kvUserKey(userID string) string {
	return "user." + base64.RawURLEncoding.EncodeToString([]byte(userID))
}

func (r *KVRepository) Create(ctx context.Context, userID string, at time.Time) (*domain.Conversation, error) {
	id, err := r.next(ctx, "seq.conversation")
	if err != nil {
		return nil, apperror.Persistence("create conversation", err)
	}

	conv := kvConversation{Conversation: domain.Conversation{ID: id, UserID: userID, CreatedAt: at, UpdatedAt: at}}
	data, err := json.Marshal(conv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if _, err := r.bucket.CreateWithContext(ctx, kvConversationKey(id), data, 0); err != nil {
		return nil, apperror.Persistence("create conversation", err)
	}

	err = r.update(ctx, kvUserKey(userID), func(raw []byte) ([]byte, error) {
		var ids []int64
		if raw != nil {
			if err := json.Unmarshal(raw, &ids); err != nil {
				return nil, err
			}
		}
		return json.Marshal(append(ids, id))
	})
	if err != nil {
		return nil, apperror.Persistence("index conversation", err)
	}

	c := conv.Conversation
	return &c, nil
}

func (r *KVRepository) Get(ctx context.Context, conversationID int64) (*domain.Conversation, error) {
	conv, _, err := r.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return &conv.Conversation, nil
}

func (r *KVRepository) Latest(ctx context.Context, userID string) (*domain.Conversation, error) {
	raw, err := r.bucket.GetWithContext(ctx, kvUserKey(userID))
	if err != nil {
		return nil, apperror.Persistence("latest conversation", err)
	}
	if raw == nil {
		return nil, domain.ErrNotFound
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, apperror.Persistence("latest conversation", err)
	}

	var latest int64
	for _, id := range ids {
		latest = max(latest, id)
	}
	if latest == 0 {
		return nil, domain.ErrNotFound
	}
	return r.Get(ctx, latest)
}

func (r *KVRepository) Append(ctx context.Context, turn *domain.Turn) error {
	if _, _, err := r.load(ctx, turn.ConversationID); err != nil {
		return err
	}

	id, err := r.next(ctx, "seq.turn")
	if err != nil {
		return apperror.Persistence("append turn", err)
	}
	turn.ID = id

	err = r.update(ctx, kvConversationKey(turn.ConversationID), func(raw []byte) ([]byte, error) {
		if raw == nil {
			return nil, domain.ErrNotFound
		}
		var conv kvConversation
		if err := json.Unmarshal(raw, &conv); err != nil {
			return nil, err
		}
		t := *turn
		conv.Turns = append(conv.Turns, &t)
		conv.UpdatedAt = turn.CreatedAt
		return json.Marshal(conv)
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return err
	case err != nil:
		return apperror.Persistence("append turn", err)
	}
	return nil
}

func (r *KVRepository) Recent(ctx context.Context, conversationID int64, limit int) ([]*domain.Turn, error) {
	conv, _, err := r.load(ctx, conversationID)
	if errors.Is(err, domain.ErrNotFound) {
		return []*domain.Turn{}, nil
	}
	if err != nil {
		return nil, err
	}

	turns := conv.Turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	if turns == nil {
		turns = []*domain.Turn{}
	}
	return turns, nil
}

func (r *KVRepository) Delete(ctx context.Context, conversationID int64) error {
	conv, _, err := r.load(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := r.bucket.DeleteWithContext(ctx, kvConversationKey(conversationID)); err != nil {
		return apperror.Persistence("delete conversation", err)
	}

	err = r.update(ctx, kvUserKey(conv.UserID), func(raw []byte) ([]byte, error) {
		var ids []int64
		if raw != nil {
			if err := json.Unmarshal(raw, &ids); err != nil {
				return nil, err
			}
		}
		kept := ids[:0]
		for _, id := range ids {
			if id != conversationID {
				kept = append(kept, id)
			}
		}
		return json.Marshal(kept)
	})
	if err != nil {
		return apperror.Persistence("unindex conversation", err)
	}
	return nil
}

func (r *KVRepository) Ping(ctx context.Context) error {
	_, err := r.bucket.StatusWithContext(ctx)
	return err
}

// Close is a no-op; the kv-jetstream plugin owns the connection.
func (r *KVRepository) Close() error {
	return nil
}

func (r *KVRepository) load(ctx context.Context, conversationID int64) (*kvConversation, uint64, error) {
	entry, err := r.bucket.GetEntryWithContext(ctx, kvConversationKey(conversationID))
	if errors.Is(err, kvjetstream.ErrKeyNotFound) {
		return nil, 0, domain.ErrNotFound
	}
	if err != nil {
		return nil, 0, apperror.Persistence("get conversation", err)
	}
	var conv kvConversation
	if err := json.Unmarshal(entry.Value, &conv); err != nil {
		return nil, 0, apperror.Persistence("get conversation", err)
	}
	return &conv, entry.Revision, nil
}

// next increments the counter at key and returns the new value.
func (r *KVRepository) next(ctx context.Context, key string) (int64, error) {
	var n int64
	err := r.update(ctx, key, func(raw []byte) ([]byte, error) {
		n = 0
		if raw != nil {
			v, err := strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return nil, err
			}
			n = v
		}
		n++
		return []byte(strconv.FormatInt(n, 10)), nil
	})
	return n, err
}

// update applies mutate to the current value of key (nil when absent) and
// writes the result, retrying when another writer got there first.
func (r *KVRepository) update(ctx context.Context, key string, mutate func(raw []byte) ([]byte, error)) error {
	for range maxCASAttempts {
		var raw []byte
		var revision uint64
		entry, err := r.bucket.GetEntryWithContext(ctx, key)
		switch {
		case err == nil:
			raw, revision = entry.Value, entry.Revision
		case !errors.Is(err, kvjetstream.ErrKeyNotFound):
			return err
		}

		data, err := mutate(raw)
		if err != nil {
			return err
		}

		if revision == 0 {
			_, err = r.bucket.CreateWithContext(ctx, key, data, 0)
		} else {
			_, err = r.bucket.UpdateWithContext(ctx, key, data, 0, revision)
		}
		if errors.Is(err, kvjetstream.ErrKeyExists) || errors.Is(err, kvjetstream.ErrRevisionMismatch) {
			continue
		}
		return err
	}
	return fmt.Errorf("too many concurrent writes to %s", key)
}
