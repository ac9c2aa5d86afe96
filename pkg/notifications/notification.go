package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trialcycle/pkg/template"
)

// Notification is a rendered message addressed to one account contact.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	RunID     string           `json:"run_id,omitempty"`
	AccountID uuid.UUID        `json:"account_id"`
	Template  string           `json:"template"`
	Channel   template.Channel `json:"channel"`
	Recipient string           `json:"recipient"`
	Subject   string           `json:"subject,omitempty"`
	BodyHTML  string           `json:"body_html,omitempty"`
	BodyText  string           `json:"body_text,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// FromRendered builds a notification for a rendered template.
func FromRendered(accountID uuid.UUID, recipient string, r template.Rendered) Notification {
	return Notification{
		AccountID: accountID,
		Template:  r.Name,
		Channel:   r.Channel,
		Recipient: recipient,
		Subject:   r.Subject,
		BodyHTML:  r.BodyHTML,
		BodyText:  r.BodyText,
	}
}

// DispatchStatus is the outcome of a delivery attempt.
type DispatchStatus string

const (
	DispatchSent   DispatchStatus = "sent"
	DispatchFailed DispatchStatus = "failed"
)

// Dispatch is the log entry written after each delivery attempt.
type Dispatch struct {
	ID        uuid.UUID        `json:"id"`
	RunID     string           `json:"run_id,omitempty"`
	AccountID uuid.UUID        `json:"account_id"`
	Template  string           `json:"template"`
	Channel   template.Channel `json:"channel"`
	Recipient string           `json:"recipient"`
	Status    DispatchStatus   `json:"status"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
