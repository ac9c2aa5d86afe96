package trial

import (
	"time"

	"github.com/dmitrymomot/trialcycle/pkg/subscription"
)

// DefaultGracePeriodDays is the policy window between trial end and suspension.
const DefaultGracePeriodDays = 7

// Resolution is the computed lifecycle state of one subscription.
type Resolution struct {
	Status             subscription.Status `json:"status"`
	DaysRemaining      int                 `json:"days_remaining"`
	GracePeriodDays    int                 `json:"grace_period_days"`
	GraceDaysRemaining int                 `json:"grace_days_remaining"`
	TotalTrialDays     int                 `json:"total_trial_days"`
	IsActive           bool                `json:"is_active"`

	// Computed is the status dictated by the dates alone. It differs from
	// Status when the stored status is already further along.
	Computed subscription.Status `json:"-"`

	graceBalance int
}

// GraceBalance is the number of grace days left, negative once the grace
// window has passed.
func (r Resolution) GraceBalance() int {
	return r.graceBalance
}

// Resolve computes the lifecycle state at now.
//
// Dates have day granularity: now is reduced to its calendar day in its own
// location, start and end to their calendar day as stored. A trial ending
// today has zero days remaining and is already expired. The grace window is
// inclusive of its last day.
//
// Statuses outside the trial family are returned unchanged. Within the
// family the result never precedes current.
func Resolve(now, start, end time.Time, current subscription.Status, graceDays int) Resolution {
	today := dayNumber(now)
	endDay := dayNumber(end)

	daysRemaining := endDay - today
	balance := graceDays + daysRemaining

	r := Resolution{
		DaysRemaining:   daysRemaining,
		GracePeriodDays: graceDays,
		TotalTrialDays:  max(0, endDay-dayNumber(start)),
		Computed:        target(daysRemaining, balance),
		graceBalance:    balance,
	}

	switch {
	case current == "" || current.IsTrialFamily():
		r.Status = Next(current, daysRemaining, balance)
	default:
		r.Status = current
	}

	switch r.Status {
	case subscription.StatusTrial:
		r.GraceDaysRemaining = graceDays
	case subscription.StatusTrialExpired:
		r.GraceDaysRemaining = max(0, balance)
	}
	r.IsActive = r.Status == subscription.StatusTrial || r.Status == subscription.StatusActive
	return r
}

// dayNumber counts calendar days since the Unix epoch for t's date in t's
// own location.
func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
