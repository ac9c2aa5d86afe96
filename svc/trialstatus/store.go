package trialstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store persists one snapshot per account across sessions.
// Snapshots never expire; a newer Save replaces the old entry.
type Store interface {
	// Load returns ErrSnapshotNotFound when nothing was saved for accountID.
	Load(ctx context.Context, accountID uuid.UUID) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[uuid.UUID]Snapshot)}
}

func (m *MemoryStore) Load(_ context.Context, accountID uuid.UUID) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[accountID]
	if !ok {
		return Snapshot{}, ErrSnapshotNotFound
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.AccountID] = s
	return nil
}

// FileStore keeps each snapshot in <dir>/<account id>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("trialstatus: create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(accountID uuid.UUID) string {
	return filepath.Join(f.dir, accountID.String()+".json")
}

func (f *FileStore) Load(_ context.Context, accountID uuid.UUID) (Snapshot, error) {
	data, err := os.ReadFile(f.path(accountID))
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("trialstatus: read snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

// Save writes to a temp file and renames it so readers never see a partial file.
func (f *FileStore) Save(_ context.Context, s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("trialstatus: encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, s.AccountID.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("trialstatus: write snapshot: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("trialstatus: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("trialstatus: write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(s.AccountID)); err != nil {
		return fmt.Errorf("trialstatus: write snapshot: %w", err)
	}
	return nil
}

// RedisStore keeps snapshots as JSON strings under a key prefix.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix replaces the default "trialstatus:" prefix.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(r *RedisStore) {
		r.prefix = prefix
	}
}

func NewRedisStore(client redis.Cmdable, opts ...RedisStoreOption) *RedisStore {
	if client == nil {
		panic("trialstatus: redis client cannot be nil")
	}
	r := &RedisStore{client: client, prefix: "trialstatus:"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisStore) key(accountID uuid.UUID) string {
	return r.prefix + accountID.String()
}

func (r *RedisStore) Load(ctx context.Context, accountID uuid.UUID) (Snapshot, error) {
	data, err := r.client.Get(ctx, r.key(accountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("trialstatus: redis get: %w", err)
	}
	return decodeSnapshot(data)
}

func (r *RedisStore) Save(ctx context.Context, s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("trialstatus: encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.AccountID), data, 0).Err(); err != nil {
		return fmt.Errorf("trialstatus: redis set: %w", err)
	}
	return nil
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, errors.Join(ErrCorruptSnapshot, err)
	}
	return s, nil
}
