package schema

import (
	"context"
	"sync"
)

// InMemoryStore tracks registered attribute names for a single run. The set
// monotonically grows; it never shrinks.
type InMemoryStore struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{seen: make(map[string]struct{})}
}

func (s *InMemoryStore) Seen(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[name]
	return ok, nil
}

func (s *InMemoryStore) MarkSeen(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[name] = struct{}{}
	return nil
}
