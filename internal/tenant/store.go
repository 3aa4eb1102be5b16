package tenant

import (
	"context"
	"sync"

	"github.com/deskhq/desk-session/internal/domain"
)

// SelectionStore persists the active-tenant choice per user scope. It is the
// durable analog of client-local storage: a selection survives reloads and
// sign-ins, is keyed by user so switching users never leaks a stale choice,
// and is cleared on sign-out.
type SelectionStore interface {
	Get(ctx context.Context, userID string) (string, error)
	Put(ctx context.Context, userID, businessID string) error
	Delete(ctx context.Context, userID string) error
}

// MemoryStore is an in-process SelectionStore used in tests and as a
// fallback when Redis is not configured.
type MemoryStore struct {
	mu         sync.Mutex
	selections map[string]string
}

// NewMemoryStore creates an empty in-memory selection store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{selections: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.selections[userID]
	if !ok {
		return "", domain.ErrSelectionNotFound
	}
	return id, nil
}

func (s *MemoryStore) Put(ctx context.Context, userID, businessID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections[userID] = businessID
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selections, userID)
	return nil
}
