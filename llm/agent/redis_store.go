package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore 基于 Redis 的对话存储，每个线程保存为一个 JSON 文档
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	ttl       time.Duration
	compactor Compactor
}

// NewRedisStore creates a Redis-backed conversation store. A zero ttl keeps
// threads forever. The client is owned by the caller.
func NewRedisStore(client redis.UniversalClient, keyPrefix string, ttl time.Duration, compactor Compactor) *RedisStore {
	return &RedisStore{
		client:    client,
		prefix:    keyPrefix + "thread:",
		ttl:       ttl,
		compactor: compactor,
	}
}

func (s *RedisStore) key(threadID string) string {
	return s.prefix + threadID
}

// Load 实现 ConversationStore
func (s *RedisStore) Load(ctx context.Context, threadID string) (*Thread, error) {
	data, err := s.client.Get(ctx, s.key(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}
	if err != nil {
		return nil, fmt.Errorf("load thread %s: %w", threadID, err)
	}

	var thread Thread
	if err := json.Unmarshal(data, &thread); err != nil {
		return nil, fmt.Errorf("decode thread %s: %w", threadID, err)
	}
	return &thread, nil
}

// Save 实现 ConversationStore
func (s *RedisStore) Save(ctx context.Context, thread *Thread) error {
	if thread == nil || thread.ID == "" {
		return errors.New("thread id is required")
	}

	stored := thread.clone()
	stored.Messages = s.compactor.Compact(stored.Messages)
	stored.UpdatedAt = time.Now()

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode thread %s: %w", thread.ID, err)
	}
	if err := s.client.Set(ctx, s.key(thread.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save thread %s: %w", thread.ID, err)
	}
	return nil
}

// Delete 实现 ConversationStore
func (s *RedisStore) Delete(ctx context.Context, threadID string) error {
	if err := s.client.Del(ctx, s.key(threadID)).Err(); err != nil {
		return fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	return nil
}
