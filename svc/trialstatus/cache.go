package trialstatus

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trialcycle/pkg/cache"
	"github.com/dmitrymomot/trialcycle/pkg/logger"
	"github.com/dmitrymomot/trialcycle/svc/trial"
)

const DefaultLRUSize = 256

// Cache is a read-through snapshot cache: an in-process LRU in front of a
// persistent Store. SetAuthoritative is its only writer and accepts
// server-resolved views only.
type Cache struct {
	lru    *cache.LRU[uuid.UUID, Snapshot]
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	size   int
	logger *slog.Logger
	now    func() time.Time
}

// WithLRUSize bounds the in-process layer.
func WithLRUSize(n int) CacheOption {
	return func(c *cacheConfig) {
		if n > 0 {
			c.size = n
		}
	}
}

func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *cacheConfig) {
		c.logger = l
	}
}

func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *cacheConfig) {
		c.now = now
	}
}

func NewCache(store Store, opts ...CacheOption) *Cache {
	if store == nil {
		panic("trialstatus: store cannot be nil")
	}
	cfg := cacheConfig{size: DefaultLRUSize, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache{
		lru:    cache.NewLRU[uuid.UUID, Snapshot](cfg.size),
		store:  store,
		logger: cfg.logger,
		now:    cfg.now,
	}
}

// Optimistic returns the last known snapshot, which may be arbitrarily
// stale. It never contacts the server and must not drive access decisions.
// Store failures are logged and reported as a miss.
func (c *Cache) Optimistic(ctx context.Context, accountID uuid.UUID) (Snapshot, bool) {
	if s, ok := c.lru.Get(accountID); ok {
		return s, true
	}

	s, err := c.store.Load(ctx, accountID)
	if err != nil {
		if !errors.Is(err, ErrSnapshotNotFound) {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "failed to load cached trial status",
				logger.AccountID(accountID), logger.Error(err))
		}
		return Snapshot{}, false
	}
	c.lru.Set(accountID, s)
	return s, true
}

// SetAuthoritative replaces the cached snapshot with a server-resolved view.
// The in-process layer is updated even when persisting fails.
func (c *Cache) SetAuthoritative(ctx context.Context, view trial.StatusView) (Snapshot, error) {
	s := SnapshotFromView(view, c.now())
	c.lru.Set(s.AccountID, s)
	if err := c.store.Save(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}
