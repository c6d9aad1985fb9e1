package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/todo-chat-demo/pkg/sqlitedb"
)

// MemoryBackend selects the in-memory repository.
const MemoryBackend = "memory"

// OpenRepository picks a Repository from a database URL:
// "memory", postgres://... / postgresql://..., or sqlite:///path (a bare path
// is treated as SQLite).
func OpenRepository(ctx context.Context, databaseURL string, debug bool) (Repository, error) {
	switch {
	case databaseURL == MemoryBackend:
		return NewMemoryRepository(), nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return NewPostgresRepository(ctx, databaseURL)
	case databaseURL == "":
		return nil, fmt.Errorf("database url is empty")
	default:
		db, err := sqlitedb.Open(sqlitedb.PathFromURL(databaseURL), debug)
		if err != nil {
			return nil, err
		}
		return NewGormRepository(db)
	}
}

// BackendName returns a log-friendly name of the backend behind a database URL.
func BackendName(databaseURL string) string {
	switch {
	case databaseURL == MemoryBackend:
		return "memory"
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return "postgres"
	default:
		return "sqlite"
	}
}
