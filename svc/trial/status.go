package trial

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trialcycle/pkg/subscription"
)

// StatusView is the resolved trial state of one account as served to clients.
type StatusView struct {
	AccountID           uuid.UUID           `json:"account_id"`
	Status              subscription.Status `json:"status"`
	DaysRemaining       int                 `json:"days_remaining"`
	GracePeriodDays     int                 `json:"grace_period_days"`
	GraceDaysRemaining  int                 `json:"grace_days_remaining"`
	TotalTrialDays      int                 `json:"total_trial_days"`
	IsActive            bool                `json:"is_active"`
	PlanName            string              `json:"plan_name,omitempty"`
	OnboardingCompleted bool                `json:"onboarding_completed"`
	UsageCounters       map[string]int64    `json:"usage_counters,omitempty"`
}

// StatusService resolves account state on demand with the same rules the
// job applies.
type StatusService struct {
	store     subscription.Store
	now       func() time.Time
	location  *time.Location
	graceDays int
}

// NewStatusService creates a status service. It accepts the job options
// that affect resolution (WithClock, WithLocation, WithGracePeriodDays).
func NewStatusService(store subscription.Store, opts ...Option) *StatusService {
	j := &Job{now: time.Now, location: time.UTC, graceDays: DefaultGracePeriodDays}
	for _, opt := range opts {
		opt(j)
	}
	return &StatusService{store: store, now: j.now, location: j.location, graceDays: j.graceDays}
}

// Status resolves the account. With withPlan it requires a joined plan row
// and returns subscription.ErrSubscriptionNotFound when either is missing.
func (s *StatusService) Status(ctx context.Context, accountID uuid.UUID, withPlan bool) (StatusView, error) {
	var (
		sub  *subscription.Subscription
		plan *subscription.Plan
		err  error
	)
	if withPlan {
		sub, plan, err = s.store.GetWithPlan(ctx, accountID)
	} else {
		sub, err = s.store.Get(ctx, accountID)
	}
	if err != nil {
		return StatusView{}, err
	}
	return s.view(sub, plan)
}

func (s *StatusService) view(sub *subscription.Subscription, plan *subscription.Plan) (StatusView, error) {
	v := StatusView{
		AccountID:           sub.AccountID,
		Status:              sub.Status,
		GracePeriodDays:     s.graceDays,
		OnboardingCompleted: sub.OnboardingCompleted,
		UsageCounters:       sub.UsageCounters,
		IsActive:            sub.Status == subscription.StatusActive,
	}
	if plan != nil {
		v.PlanName = plan.Name
	}

	if sub.TrialEndDate == nil {
		if sub.Status.IsTrialFamily() {
			return StatusView{}, errors.Join(subscription.ErrFailedToLoad, ErrMissingTrialEndDate)
		}
		return v, nil
	}

	r := Resolve(s.now().In(s.location), sub.TrialStartDate, *sub.TrialEndDate, sub.Status, s.graceDays)
	v.Status = r.Status
	v.DaysRemaining = r.DaysRemaining
	v.GraceDaysRemaining = r.GraceDaysRemaining
	v.TotalTrialDays = r.TotalTrialDays
	v.IsActive = r.IsActive
	return v, nil
}
