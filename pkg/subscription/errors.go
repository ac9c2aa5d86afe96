package subscription

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPlanNotFound         = errors.New("subscription plan not found")
	ErrStatusConflict       = errors.New("subscription status changed concurrently")
	ErrInvalidStatus        = errors.New("invalid subscription status")
	ErrFailedToLoad         = errors.New("failed to load subscriptions")
	ErrFailedToUpdate       = errors.New("failed to update subscription status")
)
