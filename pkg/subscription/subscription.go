package subscription

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Subscription is the durable per-account record.
// Trial dates are calendar days stored as UTC midnight.
type Subscription struct {
	AccountID           uuid.UUID
	PlanID              string
	Status              Status
	TrialStartDate      time.Time
	TrialEndDate        *time.Time // nil rows cannot be resolved and are skipped
	OnboardingCompleted bool
	UsageCounters       map[string]int64 // owned by the rest of the app, read-only here
	UpdatedAt           time.Time
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	if s.TrialEndDate != nil {
		end := *s.TrialEndDate
		c.TrialEndDate = &end
	}
	c.UsageCounters = maps.Clone(s.UsageCounters)
	return &c
}

// Usage returns the counter for feature, zero when it was never recorded.
func (s *Subscription) Usage(feature string) int64 {
	return s.UsageCounters[feature]
}

// Contact is the account owner's contact information used for notifications.
type Contact struct {
	Email     string
	Phone     string
	FirstName string
}

// TrialAccount is a subscription joined with the account contact details.
type TrialAccount struct {
	Subscription *Subscription
	Contact      Contact
}

// Plan is the subset of plan catalog data the trial status view needs.
type Plan struct {
	ID        string
	Name      string
	TrialDays int
}

// Date truncates t to its UTC calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
