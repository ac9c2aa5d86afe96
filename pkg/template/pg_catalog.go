package template

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGCatalog reads active templates from the notification_templates table.
type PGCatalog struct {
	db querier
}

func NewPGCatalog(db querier) *PGCatalog {
	if db == nil {
		panic("template: db cannot be nil")
	}
	return &PGCatalog{db: db}
}

func (c *PGCatalog) Active(ctx context.Context) ([]Template, error) {
	rows, err := c.db.Query(ctx, `
SELECT name, days_before_expiry, channel, subject, body_html, body_text, is_active
FROM notification_templates
WHERE is_active
ORDER BY days_before_expiry, name`)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}

	templates, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Template, error) {
		var t Template
		var channel string
		err := row.Scan(&t.Name, &t.DaysBeforeExpiry, &channel, &t.Subject, &t.BodyHTML, &t.BodyText, &t.IsActive)
		t.Channel = Channel(channel)
		return t, err
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}
	return templates, nil
}
