package subscription

// Status represents the lifecycle status of a subscription.
type Status string

const (
	StatusTrial        Status = "trial"
	StatusTrialExpired Status = "trial_expired"
	StatusSuspended    Status = "suspended"
	StatusActive       Status = "active"
	StatusCanceled     Status = "canceled"
)

// TrialFamily lists the statuses governed by the trial lifecycle, in lifecycle order.
var TrialFamily = []Status{StatusTrial, StatusTrialExpired, StatusSuspended}

// IsTrialFamily reports whether s is one of the trial lifecycle statuses.
func (s Status) IsTrialFamily() bool {
	switch s {
	case StatusTrial, StatusTrialExpired, StatusSuspended:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	return s.IsTrialFamily() || s == StatusActive || s == StatusCanceled
}

func (s Status) String() string {
	return string(s)
}
