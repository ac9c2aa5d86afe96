package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/trialcycle/pkg/pg"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore is a Store backed by PostgreSQL. Schema lives in migrations/.
type PGStore struct {
	db DBTX
}

func NewPGStore(db DBTX) *PGStore {
	if db == nil {
		panic("subscription: db cannot be nil")
	}
	return &PGStore{db: db}
}

const selectSubscription = `
SELECT s.account_id, s.plan_id, s.status, s.trial_start_date, s.trial_end_date,
       s.onboarding_completed, s.usage_counters, s.updated_at`

func (s *PGStore) Get(ctx context.Context, accountID uuid.UUID) (*Subscription, error) {
	row := s.db.QueryRow(ctx, selectSubscription+`
FROM subscriptions s
WHERE s.account_id = $1`, accountID)

	sub, err := scanSubscription(row)
	if pg.IsNotFoundError(err) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	return sub, nil
}

func (s *PGStore) GetWithPlan(ctx context.Context, accountID uuid.UUID) (*Subscription, *Plan, error) {
	row := s.db.QueryRow(ctx, selectSubscription+`, p.id, p.name, p.trial_days
FROM subscriptions s
JOIN plans p ON p.id = s.plan_id
WHERE s.account_id = $1`, accountID)

	var plan Plan
	sub, err := scanSubscription(row, &plan.ID, &plan.Name, &plan.TrialDays)
	if pg.IsNotFoundError(err) {
		return nil, nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, nil, errors.Join(ErrFailedToLoad, err)
	}
	return sub, &plan, nil
}

func (s *PGStore) ListTrialFamily(ctx context.Context) ([]TrialAccount, error) {
	statuses := make([]string, len(TrialFamily))
	for i, st := range TrialFamily {
		statuses[i] = string(st)
	}

	rows, err := s.db.Query(ctx, selectSubscription+`, a.email, coalesce(a.phone, ''), coalesce(a.first_name, '')
FROM subscriptions s
JOIN accounts a ON a.id = s.account_id
WHERE s.status = ANY($1)
ORDER BY s.account_id`, statuses)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	defer rows.Close()

	var out []TrialAccount
	for rows.Next() {
		var c Contact
		sub, err := scanSubscription(rows, &c.Email, &c.Phone, &c.FirstName)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoad, err)
		}
		out = append(out, TrialAccount{Subscription: sub, Contact: c})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	return out, nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, accountID uuid.UUID, from, to Status) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}

	tag, err := s.db.Exec(ctx, `
UPDATE subscriptions SET status = $3, updated_at = now()
WHERE account_id = $1 AND status = $2`, accountID, string(from), string(to))
	if err != nil {
		return errors.Join(ErrFailedToUpdate, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Zero rows: either the row is gone or someone else moved the status.
	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE account_id = $1)`, accountID,
	).Scan(&exists); err != nil {
		return errors.Join(ErrFailedToUpdate, err)
	}
	if !exists {
		return ErrSubscriptionNotFound
	}
	return fmt.Errorf("%w: account %s is no longer %s", ErrStatusConflict, accountID, from)
}

func scanSubscription(row pgx.Row, extra ...any) (*Subscription, error) {
	var (
		sub    Subscription
		status string
		end    *time.Time
	)
	dest := append([]any{
		&sub.AccountID, &sub.PlanID, &status, &sub.TrialStartDate, &end,
		&sub.OnboardingCompleted, &sub.UsageCounters, &sub.UpdatedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	sub.Status = Status(status)
	sub.TrialStartDate = Date(sub.TrialStartDate)
	if end != nil {
		d := Date(*end)
		sub.TrialEndDate = &d
	}
	return &sub, nil
}
