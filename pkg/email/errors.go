package email

import "errors"

var (
	ErrFailedToSendEmail = errors.New("email: delivery failed")
	ErrInvalidConfig     = errors.New("email: invalid config")
	ErrInvalidParams     = errors.New("email: invalid message")
)
