package notifications

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Storage persists dispatch log entries.
type Storage interface {
	Create(ctx context.Context, d Dispatch) error

	// List returns dispatches for an account, newest first. A limit of 0
	// returns all of them.
	List(ctx context.Context, accountID uuid.UUID, limit int) ([]Dispatch, error)
}

// MemoryStorage is an in-memory Storage.
// Suitable for development and testing.
type MemoryStorage struct {
	mu         sync.RWMutex
	dispatches []Dispatch
}

// NewMemoryStorage creates a new in-memory dispatch storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Create(_ context.Context, d Dispatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatches = append(s.dispatches, d)
	return nil
}

func (s *MemoryStorage) List(_ context.Context, accountID uuid.UUID, limit int) ([]Dispatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Dispatch
	for _, d := range slices.Backward(s.dispatches) {
		if d.AccountID != accountID {
			continue
		}
		out = append(out, d)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns every dispatch in insertion order.
func (s *MemoryStorage) All() []Dispatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.dispatches)
}
