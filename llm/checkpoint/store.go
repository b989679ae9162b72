// Package checkpoint provides compose.CheckPointStore backends used to pause
// and resume graph runs across process boundaries.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockdesk/config"

	"github.com/cloudwego/eino/compose"
	"github.com/redis/go-redis/v9"
)

// Store persists serialized graph checkpoints.
// Implementations must be safe for concurrent use.
type Store interface {
	compose.CheckPointStore

	// Delete removes a checkpoint. Returns nil if it doesn't exist.
	Delete(ctx context.Context, checkPointID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("checkpoint store closed")

// New creates the backend selected by cfg. rdb is only used by the redis backend.
func New(cfg config.CheckpointConfig, rdb redis.UniversalClient, keyPrefix string) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis checkpoint backend requires a redis client")
		}
		return NewRedisStore(rdb, keyPrefix, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
