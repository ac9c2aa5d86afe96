package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/trialcycle/pkg/subscription"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStorage writes records to the transition_records table.
type PGStorage struct {
	db dbtx
}

func NewPGStorage(db dbtx) *PGStorage {
	if db == nil {
		panic("audit: db cannot be nil")
	}
	return &PGStorage{db: db}
}

func (s *PGStorage) Store(ctx context.Context, records ...Record) error {
	for _, r := range records {
		_, err := s.db.Exec(ctx, `
INSERT INTO transition_records (id, run_id, account_id, old_status, new_status, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.ID, r.RunID, r.AccountID, string(r.OldStatus), string(r.NewStatus), r.Reason, r.CreatedAt)
		if err != nil {
			return errors.Join(ErrStorageNotAvailable, err)
		}
	}
	return nil
}

func (s *PGStorage) Query(ctx context.Context, c Criteria) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if c.AccountID != uuid.Nil {
		args = append(args, c.AccountID)
		where = append(where, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if c.RunID != "" {
		args = append(args, c.RunID)
		where = append(where, fmt.Sprintf("run_id = $%d", len(args)))
	}

	q := "SELECT id, run_id, account_id, old_status, new_status, reason, created_at FROM transition_records"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"
	if c.Limit > 0 {
		args = append(args, c.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Join(ErrStorageNotAvailable, err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		var oldStatus, newStatus string
		err := row.Scan(&r.ID, &r.RunID, &r.AccountID, &oldStatus, &newStatus, &r.Reason, &r.CreatedAt)
		r.OldStatus = subscription.Status(oldStatus)
		r.NewStatus = subscription.Status(newStatus)
		return r, err
	})
	if err != nil {
		return nil, errors.Join(ErrStorageNotAvailable, err)
	}
	return records, nil
}
