package checkpoint

import (
	"context"
	"sync"

	"github.com/cloudwego/eino-examples/adk/common/store"
	"github.com/cloudwego/eino/compose"
)

// MemoryStore keeps checkpoints in process memory. Checkpoints are lost when
// the process exits, so resuming only works within the same run.
type MemoryStore struct {
	mu      sync.RWMutex
	inner   compose.CheckPointStore
	deleted map[string]struct{}
	closed  bool
}

// NewMemoryStore creates an in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		inner:   store.NewInMemoryStore(),
		deleted: make(map[string]struct{}),
	}
}

// Get implements compose.CheckPointStore.
func (s *MemoryStore) Get(ctx context.Context, checkPointID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, ErrStoreClosed
	}
	if _, ok := s.deleted[checkPointID]; ok {
		return nil, false, nil
	}
	return s.inner.Get(ctx, checkPointID)
}

// Set implements compose.CheckPointStore.
func (s *MemoryStore) Set(ctx context.Context, checkPointID string, checkPoint []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	delete(s.deleted, checkPointID)
	return s.inner.Set(ctx, checkPointID, checkPoint)
}

// Delete implements Store. The underlying store has no delete, so the ID is
// masked until it is written again.
func (s *MemoryStore) Delete(_ context.Context, checkPointID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.deleted[checkPointID] = struct{}{}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
