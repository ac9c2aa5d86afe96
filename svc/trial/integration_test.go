package trial_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/trialcycle/migrations"
	"github.com/dmitrymomot/trialcycle/pkg/audit"
	"github.com/dmitrymomot/trialcycle/pkg/config"
	"github.com/dmitrymomot/trialcycle/pkg/logger"
	"github.com/dmitrymomot/trialcycle/pkg/notifications"
	"github.com/dmitrymomot/trialcycle/pkg/pg"
	"github.com/dmitrymomot/trialcycle/pkg/subscription"
	"github.com/dmitrymomot/trialcycle/pkg/template"
	"github.com/dmitrymomot/trialcycle/svc/trial"
)

// setupPostgres connects to PG_CONN_URL and applies migrations.
// The test is skipped when no database is configured.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("PG_CONN_URL") == "" {
		t.Skip("PG_CONN_URL not set")
	}

	var cfg pg.Config
	require.NoError(t, config.Load(&cfg))
	cfg.RetryAttempts = 1

	ctx := context.Background()
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, cfg, migrations.FS, logger.Discard()))
	return pool
}

func seedAccount(t *testing.T, pool *pgxpool.Pool, planID string, status subscription.Status, start, end time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	ctx := context.Background()

	_, err := pool.Exec(ctx, `INSERT INTO accounts (id, email, first_name) VALUES ($1, $2, $3)`,
		id, id.String()+"@example.com", "Dana")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
INSERT INTO subscriptions (account_id, plan_id, status, trial_start_date, trial_end_date)
VALUES ($1, $2, $3, $4, $5)`, id, planID, string(status), start, end)
	require.NoError(t, err)
	return id
}

func TestJob_Postgres(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()

	planID := "pro-" + uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO plans (id, name, trial_days) VALUES ($1, 'Pro', 14)`, planID)
	require.NoError(t, err)

	tplName := "seven_days_" + uuid.NewString()
	_, err = pool.Exec(ctx, `
INSERT INTO notification_templates (name, days_before_expiry, channel, subject, body_html, body_text)
VALUES ($1, 7, 'email', 'Hi {{first_name}}', '<p>{{days_remaining}} days left</p>', '{{days_remaining}} days left')`, tplName)
	require.NoError(t, err)

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	expiring := seedAccount(t, pool, planID, subscription.StatusTrial, day(2025, 2, 20), day(2025, 3, 9))
	reminded := seedAccount(t, pool, planID, subscription.StatusTrial, day(2025, 3, 3), day(2025, 3, 17))

	store := subscription.NewPGStore(pool)
	auditStorage := audit.NewPGStorage(pool)
	logStorage := notifications.NewPGStorage(pool)
	out := &outbox{}

	job := trial.NewJob(
		store,
		template.NewPGCatalog(pool),
		notifications.NewManager(logStorage, out),
		audit.NewLogger(auditStorage, audit.WithRunIDExtractor(trial.RunIDFromContext)),
		trial.WithClock(func() time.Time { return now }),
		trial.WithLedger(trial.NewPGLedger(pool)),
		trial.WithLogger(logger.Discard()),
		trial.WithWorkers(4),
	)

	first, err := job.Run(ctx)
	require.NoError(t, err)
	second, err := job.Run(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)

	t.Run("status written once", func(t *testing.T) {
		sub, err := store.Get(ctx, expiring)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusTrialExpired, sub.Status)

		records, err := auditStorage.Query(ctx, audit.Criteria{AccountID: expiring})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, subscription.StatusTrial, records[0].OldStatus)
		assert.Equal(t, subscription.StatusTrialExpired, records[0].NewStatus)
		assert.Equal(t, first.RunID, records[0].RunID)
	})

	t.Run("reminder deduplicated across runs", func(t *testing.T) {
		history, err := logStorage.List(ctx, reminded, 10)
		require.NoError(t, err)

		var sent int
		for _, d := range history {
			if d.Template == tplName && d.Status == notifications.DispatchSent {
				sent++
				assert.Equal(t, reminded.String()+"@example.com", d.Recipient)
			}
		}
		assert.Equal(t, 1, sent)
	})

	t.Run("status view joins plan", func(t *testing.T) {
		svc := trial.NewStatusService(store, trial.WithClock(func() time.Time { return now }))
		view, err := svc.Status(ctx, reminded, true)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusTrial, view.Status)
		assert.Equal(t, 7, view.DaysRemaining)
		assert.Equal(t, "Pro", view.PlanName)
	})
}
