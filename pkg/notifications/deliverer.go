package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/trialcycle/pkg/email"
	"github.com/dmitrymomot/trialcycle/pkg/logger"
	"github.com/dmitrymomot/trialcycle/pkg/template"
)

// Deliverer sends a notification through a single transport.
type Deliverer interface {
	Deliver(ctx context.Context, notif Notification) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, notif Notification) error

func (f DelivererFunc) Deliver(ctx context.Context, notif Notification) error {
	return f(ctx, notif)
}

// EmailDeliverer sends notifications as transactional email.
type EmailDeliverer struct {
	sender email.EmailSender
}

func NewEmailDeliverer(sender email.EmailSender) *EmailDeliverer {
	if sender == nil {
		panic("notifications: email sender cannot be nil")
	}
	return &EmailDeliverer{sender: sender}
}

func (d *EmailDeliverer) Deliver(ctx context.Context, notif Notification) error {
	return d.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   notif.Recipient,
		Subject:  notif.Subject,
		BodyHTML: notif.BodyHTML,
		BodyText: notif.BodyText,
		Tag:      notif.Template,
	})
}

// MultiDeliverer routes notifications to the deliverer registered for
// their channel.
type MultiDeliverer struct {
	channels map[template.Channel]Deliverer
	logger   *slog.Logger
}

// MultiDelivererOption configures a MultiDeliverer.
type MultiDelivererOption func(*MultiDeliverer)

// WithChannel registers the deliverer for a channel.
func WithChannel(ch template.Channel, d Deliverer) MultiDelivererOption {
	return func(m *MultiDeliverer) {
		m.channels[ch] = d
	}
}

// WithMultiDelivererLogger sets the logger for the MultiDeliverer.
func WithMultiDelivererLogger(logger *slog.Logger) MultiDelivererOption {
	return func(m *MultiDeliverer) {
		m.logger = logger
	}
}

// NewMultiDeliverer creates a channel router.
func NewMultiDeliverer(opts ...MultiDelivererOption) *MultiDeliverer {
	m := &MultiDeliverer{
		channels: make(map[template.Channel]Deliverer),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Deliver forwards to the channel deliverer. A channel without a deliverer
// fails with ErrChannelNotConfigured.
func (m *MultiDeliverer) Deliver(ctx context.Context, notif Notification) error {
	d, ok := m.channels[notif.Channel]
	if !ok {
		m.logger.LogAttrs(ctx, slog.LevelError, "no deliverer for notification channel",
			logger.AccountID(notif.AccountID),
			logger.Template(notif.Template),
			logger.Channel(string(notif.Channel)),
		)
		return fmt.Errorf("%w: %s", ErrChannelNotConfigured, notif.Channel)
	}
	return d.Deliver(ctx, notif)
}

// HasChannel reports whether a deliverer is registered for ch.
func (m *MultiDeliverer) HasChannel(ch template.Channel) bool {
	_, ok := m.channels[ch]
	return ok
}

// NoOpDeliverer is a deliverer that does nothing.
type NoOpDeliverer struct{}

// Deliver does nothing and returns nil.
func (NoOpDeliverer) Deliver(context.Context, Notification) error {
	return nil
}
