package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/trialcycle/pkg/template"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStorage writes dispatches to the notification_log table.
type PGStorage struct {
	db dbtx
}

func NewPGStorage(db dbtx) *PGStorage {
	if db == nil {
		panic("notifications: db cannot be nil")
	}
	return &PGStorage{db: db}
}

func (s *PGStorage) Create(ctx context.Context, d Dispatch) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO notification_log (id, run_id, account_id, template, channel, recipient, status, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)`,
		d.ID, d.RunID, d.AccountID, d.Template, string(d.Channel), d.Recipient, string(d.Status), d.Error, d.CreatedAt)
	if err != nil {
		return errors.Join(ErrFailedToRecord, err)
	}
	return nil
}

func (s *PGStorage) List(ctx context.Context, accountID uuid.UUID, limit int) ([]Dispatch, error) {
	q := `
SELECT id, run_id, account_id, template, channel, recipient, status, COALESCE(error, ''), created_at
FROM notification_log
WHERE account_id = $1
ORDER BY created_at DESC`
	args := []any{accountID}
	if limit > 0 {
		q += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Dispatch, error) {
		var d Dispatch
		var channel, status string
		err := row.Scan(&d.ID, &d.RunID, &d.AccountID, &d.Template, &channel, &d.Recipient, &status, &d.Error, &d.CreatedAt)
		d.Channel = template.Channel(channel)
		d.Status = DispatchStatus(status)
		return d, err
	})
}
