package trial

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// LedgerKey identifies one notification for one trial window. Extending a
// trial changes TrialEndDate, so the new window is notified again.
type LedgerKey struct {
	AccountID    uuid.UUID
	Template     string
	TrialEndDate time.Time
}

// Ledger prevents the same template from being sent twice for a trial window.
type Ledger interface {
	// Claim reserves key. It returns false if key was already claimed.
	Claim(ctx context.Context, key LedgerKey) (bool, error)

	// Release drops a claim after a failed delivery so a later run may retry.
	Release(ctx context.Context, key LedgerKey) error
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu   sync.Mutex
	keys map[LedgerKey]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{keys: make(map[LedgerKey]struct{})}
}

func (l *MemoryLedger) Claim(_ context.Context, key LedgerKey) (bool, error) {
	key.TrialEndDate = truncateDay(key.TrialEndDate)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.keys[key]; ok {
		return false, nil
	}
	l.keys[key] = struct{}{}
	return true, nil
}

func (l *MemoryLedger) Release(_ context.Context, key LedgerKey) error {
	key.TrialEndDate = truncateDay(key.TrialEndDate)
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGLedger stores claims in the notification_ledger table.
type PGLedger struct {
	db execer
}

func NewPGLedger(db execer) *PGLedger {
	if db == nil {
		panic("trial: db cannot be nil")
	}
	return &PGLedger{db: db}
}

func (l *PGLedger) Claim(ctx context.Context, key LedgerKey) (bool, error) {
	tag, err := l.db.Exec(ctx, `
INSERT INTO notification_ledger (account_id, template, trial_end_date)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`,
		key.AccountID, key.Template, truncateDay(key.TrialEndDate))
	if err != nil {
		return false, errors.Join(ErrLedgerUnavailable, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (l *PGLedger) Release(ctx context.Context, key LedgerKey) error {
	_, err := l.db.Exec(ctx, `
DELETE FROM notification_ledger
WHERE account_id = $1 AND template = $2 AND trial_end_date = $3`,
		key.AccountID, key.Template, truncateDay(key.TrialEndDate))
	if err != nil {
		return errors.Join(ErrLedgerUnavailable, err)
	}
	return nil
}

// DefaultLedgerTTL keeps Redis claims long enough to outlive any trial window.
const DefaultLedgerTTL = 180 * 24 * time.Hour

// RedisLedger stores claims as SETNX keys that expire after a TTL.
type RedisLedger struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisLedger creates a ledger with keys under "trial:ledger:".
// A non-positive ttl selects DefaultLedgerTTL.
func NewRedisLedger(client redis.Cmdable, ttl time.Duration) *RedisLedger {
	if client == nil {
		panic("trial: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	return &RedisLedger{client: client, prefix: "trial:ledger:", ttl: ttl}
}

func (l *RedisLedger) key(k LedgerKey) string {
	return l.prefix + k.AccountID.String() + ":" + k.Template + ":" + truncateDay(k.TrialEndDate).Format(time.DateOnly)
}

func (l *RedisLedger) Claim(ctx context.Context, key LedgerKey) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(key), 1, l.ttl).Result()
	if err != nil {
		return false, errors.Join(ErrLedgerUnavailable, err)
	}
	return ok, nil
}

func (l *RedisLedger) Release(ctx context.Context, key LedgerKey) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return errors.Join(ErrLedgerUnavailable, err)
	}
	return nil
}
