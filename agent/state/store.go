package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrStateNotFound  = errors.New("booking state not found")
	ErrInvalidSession = errors.New("session id is empty")
)

// Store owns every BookingState, keyed by session id.
//
// Init is idempotent: when a state already exists it is returned unchanged.
// Update merges into the existing state, or into a fresh initial state when
// none exists.
type Store interface {
	Init(ctx context.Context, sessionID string) (BookingState, error)
	Get(ctx context.Context, sessionID string) (BookingState, error)
	Update(ctx context.Context, sessionID string, patch Patch) (BookingState, error)
	Clear(ctx context.Context, sessionID string) error
	ClearAll(ctx context.Context) error
}

// MemoryStore keeps booking state in process memory. Reads and writes for
// different sessions are safe to run concurrently; values handed out are
// copies.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]BookingState
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]BookingState),
		now:    time.Now,
	}
}

func (s *MemoryStore) Init(_ context.Context, sessionID string) (BookingState, error) {
	id, err := normalizeSessionID(sessionID)
	if err != nil {
		return BookingState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.states[id]; ok {
		return st.Clone(), nil
	}
	st := NewBookingState(id, s.now())
	s.states[id] = st
	return st.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (BookingState, error) {
	id, err := normalizeSessionID(sessionID)
	if err != nil {
		return BookingState{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[id]
	if !ok {
		return BookingState{}, ErrStateNotFound
	}
	return st.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, sessionID string, patch Patch) (BookingState, error) {
	id, err := normalizeSessionID(sessionID)
	if err != nil {
		return BookingState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cur, ok := s.states[id]
	if !ok {
		cur = NewBookingState(id, now)
	}
	next := patch.Apply(cur)
	next.UpdatedAt = now.UTC()
	s.states[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	id, err := normalizeSessionID(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
	return nil
}

func (s *MemoryStore) ClearAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]BookingState)
	return nil
}

// Len reports how many sessions are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

func normalizeSessionID(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", ErrInvalidSession
	}
	return id, nil
}
