package trial

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trialcycle/pkg/statemachine"
	"github.com/dmitrymomot/trialcycle/pkg/subscription"
)

// Event drives a lifecycle transition.
type Event string

const (
	EventTrialEnded Event = "trial_ended"
	EventGraceEnded Event = "grace_ended"
)

var rank = map[subscription.Status]int{
	subscription.StatusTrial:        0,
	subscription.StatusTrialExpired: 1,
	subscription.StatusSuspended:    2,
}

// Next returns the status an account in current should move to.
// graceDaysRemaining is negative once the grace window has passed.
// The result never precedes current.
func Next(current subscription.Status, daysRemaining, graceDaysRemaining int) subscription.Status {
	t := target(daysRemaining, graceDaysRemaining)
	if cur, ok := rank[current]; ok && cur > rank[t] {
		return current
	}
	return t
}

func target(daysRemaining, graceDaysRemaining int) subscription.Status {
	switch {
	case daysRemaining > 0:
		return subscription.StatusTrial
	case graceDaysRemaining >= 0:
		return subscription.StatusTrialExpired
	default:
		return subscription.StatusSuspended
	}
}

// Change is the data an event carries through the lifecycle.
type Change struct {
	AccountID  uuid.UUID
	Resolution Resolution
}

// StatusWriter persists from -> to for one account.
type StatusWriter func(ctx context.Context, accountID uuid.UUID, from, to subscription.Status) error

// Lifecycle is the forward-only transition table.
type Lifecycle = statemachine.Table[subscription.Status, Event]

// NewLifecycle builds the table. Suspension may follow either state so a
// job that did not run during the grace window still lands correctly.
//
// Each transition is guarded by the resolution carried in a Change: the
// trial must have ended, and suspension needs the grace window to have
// passed. When write is not nil it runs as the transition's action, so a
// failed write leaves the machine in its previous state.
func NewLifecycle(write StatusWriter) *Lifecycle {
	var opts []statemachine.TransitionOption[subscription.Status, Event]
	if write != nil {
		opts = append(opts, statemachine.WithAction[subscription.Status, Event](func(ctx context.Context, from, to subscription.Status, _ Event, data any) error {
			c, _ := data.(Change)
			return write(ctx, c.AccountID, from, to)
		}))
	}
	trialEnded := append([]statemachine.TransitionOption[subscription.Status, Event]{
		statemachine.WithGuard(guard(func(r Resolution) bool { return r.DaysRemaining <= 0 })),
	}, opts...)
	graceEnded := append([]statemachine.TransitionOption[subscription.Status, Event]{
		statemachine.WithGuard(guard(func(r Resolution) bool { return r.GraceBalance() < 0 })),
	}, opts...)

	return statemachine.MustNewTable(
		statemachine.WithTransition[subscription.Status, Event](subscription.StatusTrial, subscription.StatusTrialExpired, EventTrialEnded, trialEnded...),
		statemachine.WithTransition[subscription.Status, Event](subscription.StatusTrial, subscription.StatusSuspended, EventGraceEnded, graceEnded...),
		statemachine.WithTransition[subscription.Status, Event](subscription.StatusTrialExpired, subscription.StatusSuspended, EventGraceEnded, graceEnded...),
	)
}

// guard rejects events that carry no Change.
func guard(ok func(Resolution) bool) statemachine.Guard[subscription.Status, Event] {
	return func(_ context.Context, _ subscription.Status, _ Event, data any) bool {
		c, isChange := data.(Change)
		return isChange && ok(c.Resolution)
	}
}

// eventFor maps a target status to the event that reaches it.
func eventFor(to subscription.Status) Event {
	if to == subscription.StatusSuspended {
		return EventGraceEnded
	}
	return EventTrialEnded
}

// Reason is the audit text for an event.
func (e Event) Reason() string {
	switch e {
	case EventTrialEnded:
		return "trial period ended"
	case EventGraceEnded:
		return "grace period ended"
	}
	return string(e)
}

// apply fires the event that leads from -> to on a machine positioned at
// from. The table's action performs the write.
func apply(ctx context.Context, lc *Lifecycle, from, to subscription.Status, c Change) (Event, error) {
	ev := eventFor(to)
	m := lc.Machine(from)
	return ev, m.Fire(ctx, ev, c)
}
