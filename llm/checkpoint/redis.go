package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps checkpoints as plain Redis strings with an optional TTL.
// The client is owned by the caller; Close does not close it.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	closed atomic.Bool
}

// NewRedisStore creates a Redis checkpoint store. A zero ttl keeps keys forever.
func NewRedisStore(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: keyPrefix + "checkpoint:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(checkPointID string) string {
	return s.prefix + checkPointID
}

// Get implements compose.CheckPointStore.
func (s *RedisStore) Get(ctx context.Context, checkPointID string) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}

	data, err := s.client.Get(ctx, s.key(checkPointID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint: %w", err)
	}
	return data, true, nil
}

// Set implements compose.CheckPointStore.
func (s *RedisStore) Set(ctx context.Context, checkPointID string, checkPoint []byte) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	if err := s.client.Set(ctx, s.key(checkPointID), checkPoint, s.ttl).Err(); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, checkPointID string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	if err := s.client.Del(ctx, s.key(checkPointID)).Err(); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	s.closed.Store(true)
	return nil
}
