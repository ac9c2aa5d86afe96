package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trialcycle/pkg/logger"
)

// Manager orchestrates notification delivery and dispatch logging.
type Manager struct {
	storage   Storage
	deliverer Deliverer
	logger    *slog.Logger
	now       func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for the Manager.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithManagerClock overrides the timestamp source.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new notification manager.
func NewManager(storage Storage, deliverer Deliverer, opts ...ManagerOption) *Manager {
	if storage == nil {
		panic("notifications: storage cannot be nil")
	}
	if deliverer == nil {
		deliverer = NoOpDeliverer{}
	}

	m := &Manager{
		storage:   storage,
		deliverer: deliverer,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send delivers the notification and records the outcome. The returned
// error is the delivery error; a failed record is only logged.
func (m *Manager) Send(ctx context.Context, notif Notification) error {
	if notif.ID == uuid.Nil {
		notif.ID = uuid.New()
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = m.now().UTC()
	}

	var err error
	if notif.Recipient == "" {
		err = ErrMissingRecipient
	} else {
		err = m.deliverer.Deliver(ctx, notif)
	}

	d := Dispatch{
		ID:        notif.ID,
		RunID:     notif.RunID,
		AccountID: notif.AccountID,
		Template:  notif.Template,
		Channel:   notif.Channel,
		Recipient: notif.Recipient,
		Status:    DispatchSent,
		CreatedAt: notif.CreatedAt,
	}
	if err != nil {
		d.Status = DispatchFailed
		d.Error = err.Error()
	}

	if recErr := m.storage.Create(ctx, d); recErr != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "failed to record notification dispatch",
			logger.AccountID(notif.AccountID),
			logger.Template(notif.Template),
			slog.String("dispatch_status", string(d.Status)),
			logger.Error(recErr),
		)
	}

	return err
}

// History returns recorded dispatches for an account, newest first.
func (m *Manager) History(ctx context.Context, accountID uuid.UUID, limit int) ([]Dispatch, error) {
	return m.storage.List(ctx, accountID, limit)
}
