package trial_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/trialcycle/svc/trial"
)

func TestLedgers(t *testing.T) {
	t.Parallel()

	ledgers := map[string]func(t *testing.T) trial.Ledger{
		"memory": func(*testing.T) trial.Ledger { return trial.NewMemoryLedger() },
		"redis": func(t *testing.T) trial.Ledger {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return trial.NewRedisLedger(client, 0)
		},
	}

	for name, build := range ledgers {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			l := build(t)

			key := trial.LedgerKey{
				AccountID:    uuid.New(),
				Template:     "trial_ends_in_7_days",
				TrialEndDate: time.Date(2025, 3, 17, 15, 4, 0, 0, time.UTC),
			}

			ok, err := l.Claim(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)

			// time of day is ignored
			sameDay := key
			sameDay.TrialEndDate = day(2025, 3, 17)
			ok, err = l.Claim(ctx, sameDay)
			require.NoError(t, err)
			assert.False(t, ok)

			extended := key
			extended.TrialEndDate = day(2025, 3, 24)
			ok, err = l.Claim(ctx, extended)
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, l.Release(ctx, key))
			ok, err = l.Claim(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestRedisLedger_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l := trial.NewRedisLedger(client, time.Hour)

	key := trial.LedgerKey{AccountID: uuid.New(), Template: "t", TrialEndDate: day(2025, 1, 1)}
	ok, err := l.Claim(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Hour)
	ok, err = l.Claim(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLedger_Unavailable(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	_, err = trial.NewRedisLedger(client, 0).Claim(context.Background(), trial.LedgerKey{AccountID: uuid.New()})
	assert.ErrorIs(t, err, trial.ErrLedgerUnavailable)
}
