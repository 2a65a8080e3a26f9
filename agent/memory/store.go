package memory

import (
	"context"
	"sync"
)

// InMemoryStore keeps histories for the lifetime of the process.
type InMemoryStore struct {
	mu        sync.RWMutex
	histories map[string]History
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{histories: make(map[string]History)}
}

func (s *InMemoryStore) Load(_ context.Context, sessionID string) (History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.histories[sessionID].Clone(), nil
}

func (s *InMemoryStore) Save(_ context.Context, sessionID string, h History) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[sessionID] = h.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, sessionID)
	return nil
}
