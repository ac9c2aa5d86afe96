package subscription

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRecord struct {
	sub     *Subscription
	contact Contact
}

// MemoryStore is an in-memory Store. Suitable for development and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]memoryRecord
	plans   map[string]Plan
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]memoryRecord),
		plans:   make(map[string]Plan),
		now:     time.Now,
	}
}

// Put inserts or replaces a subscription and its contact details.
func (s *MemoryStore) Put(sub *Subscription, contact Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[sub.AccountID] = memoryRecord{sub: sub.Clone(), contact: contact}
}

// PutPlan inserts or replaces a plan.
func (s *MemoryStore) PutPlan(p Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
}

// SetStatus overwrites status unconditionally, the way an admin tool would.
func (s *MemoryStore) SetStatus(accountID uuid.UUID, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[accountID]; ok {
		rec.sub.Status = status
		rec.sub.UpdatedAt = s.now()
	}
}

func (s *MemoryStore) Get(_ context.Context, accountID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[accountID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return rec.sub.Clone(), nil
}

func (s *MemoryStore) GetWithPlan(_ context.Context, accountID uuid.UUID) (*Subscription, *Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[accountID]
	if !ok {
		return nil, nil, ErrSubscriptionNotFound
	}
	plan, ok := s.plans[rec.sub.PlanID]
	if !ok {
		return nil, nil, ErrSubscriptionNotFound
	}
	return rec.sub.Clone(), &plan, nil
}

func (s *MemoryStore) ListTrialFamily(_ context.Context) ([]TrialAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TrialAccount, 0, len(s.records))
	for _, rec := range s.records {
		if !rec.sub.Status.IsTrialFamily() {
			continue
		}
		out = append(out, TrialAccount{Subscription: rec.sub.Clone(), Contact: rec.contact})
	}

	// Stable order keeps runs reproducible.
	slices.SortFunc(out, func(a, b TrialAccount) int {
		return slices.Compare(a.Subscription.AccountID[:], b.Subscription.AccountID[:])
	})
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, accountID uuid.UUID, from, to Status) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[accountID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	if rec.sub.Status != from {
		return ErrStatusConflict
	}
	rec.sub.Status = to
	rec.sub.UpdatedAt = s.now()
	return nil
}
