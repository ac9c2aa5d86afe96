package trialstatus

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trialcycle/pkg/subscription"
	"github.com/dmitrymomot/trialcycle/svc/trial"
)

// Snapshot is the cached trial state of one account.
type Snapshot struct {
	AccountID       uuid.UUID           `json:"account_id"`
	Status          subscription.Status `json:"status"`
	DaysRemaining   int                 `json:"days_remaining"`
	GracePeriodDays int                 `json:"grace_period_days"`
	TotalTrialDays  int                 `json:"total_trial_days"`
	PlanName        string              `json:"plan_name,omitempty"`
	CachedAt        time.Time           `json:"cached_at"`
}

// SnapshotFromView copies the cacheable fields of a server view.
func SnapshotFromView(v trial.StatusView, cachedAt time.Time) Snapshot {
	return Snapshot{
		AccountID:       v.AccountID,
		Status:          v.Status,
		DaysRemaining:   v.DaysRemaining,
		GracePeriodDays: v.GracePeriodDays,
		TotalTrialDays:  v.TotalTrialDays,
		PlanName:        v.PlanName,
		CachedAt:        cachedAt,
	}
}

// Age reports how long ago the snapshot was written.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CachedAt)
}
