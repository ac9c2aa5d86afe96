package audit

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Storage persists transition records.
type Storage interface {
	Store(ctx context.Context, records ...Record) error
	Query(ctx context.Context, criteria Criteria) ([]Record, error)
}

// MemoryStorage keeps records in insertion order.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(_ context.Context, records ...Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

// Query returns the newest matching records first.
func (s *MemoryStorage) Query(_ context.Context, c Criteria) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, r := range slices.Backward(s.records) {
		if !matches(r, c) {
			continue
		}
		out = append(out, r)
		if c.Limit > 0 && len(out) == c.Limit {
			break
		}
	}
	return out, nil
}

// All returns a copy of every stored record in insertion order.
func (s *MemoryStorage) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

func matches(r Record, c Criteria) bool {
	if c.AccountID != uuid.Nil && r.AccountID != c.AccountID {
		return false
	}
	if c.RunID != "" && r.RunID != c.RunID {
		return false
	}
	return true
}
