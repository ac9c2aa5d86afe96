package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Store defines subscription persistence.
type Store interface {
	// Get retrieves a subscription by account ID.
	// Returns ErrSubscriptionNotFound if no subscription exists.
	Get(ctx context.Context, accountID uuid.UUID) (*Subscription, error)

	// GetWithPlan retrieves a subscription joined with its plan.
	// Returns ErrSubscriptionNotFound when either side of the join is missing.
	GetWithPlan(ctx context.Context, accountID uuid.UUID) (*Subscription, *Plan, error)

	// ListTrialFamily returns every subscription whose status is in TrialFamily,
	// joined with contact details. Rows with a missing trial end date are included.
	ListTrialFamily(ctx context.Context) ([]TrialAccount, error)

	// UpdateStatus sets status to `to` only if it currently equals `from`.
	// Returns ErrStatusConflict if the stored status differs.
	UpdateStatus(ctx context.Context, accountID uuid.UUID, from, to Status) error
}
