package notifications

import "errors"

var (
	ErrChannelNotConfigured = errors.New("notification channel is not configured")
	ErrMissingRecipient     = errors.New("notification recipient is empty")
	ErrFailedToRecord       = errors.New("failed to record notification dispatch")
)
