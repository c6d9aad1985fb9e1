package conversation

import (
	"context"
	"fmt"

	"github.com/example/todo-chat-demo/pkg/sqlitedb"
	"github.com/redis/go-redis/v9"
)

// Backend names accepted by OpenRepository.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendKV     = "kv"
)

// KVPluginAlias is the alias the kv-jetstream plugin is registered under.
const KVPluginAlias = "kv"

const redisKeyPrefix = "todochat:"

// BackendConfig selects and configures the history storage.
type BackendConfig struct {
	Backend   string
	DBPath    string
	RedisAddr string
	Debug     bool
}

// OpenRepository opens the repository named by cfg.Backend.
func OpenRepository(ctx context.Context, cfg BackendConfig) (Repository, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryRepository(), nil
	case BackendSQLite, "":
		db, err := sqlitedb.Open(sqlitedb.PathFromURL(cfg.DBPath), cfg.Debug)
		if err != nil {
			return nil, err
		}
		return NewGormRepository(db)
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisRepository(client, redisKeyPrefix), nil
	case BackendKV:
		return nil, fmt.Errorf("the %s backend needs the kv-jetstream plugin registered as %q", BackendKV, KVPluginAlias)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}
