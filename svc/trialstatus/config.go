package trialstatus

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds client cache settings.
type Config struct {
	Backend        string        `env:"TRIAL_STATUS_CACHE_BACKEND" envDefault:"file"`
	CacheDir       string        `env:"TRIAL_STATUS_CACHE_DIR" envDefault:"./tmp/trialstatus"`
	LRUSize        int           `env:"TRIAL_STATUS_LRU_SIZE" envDefault:"256"`
	GovernedRoles  []string      `env:"TRIAL_STATUS_GOVERNED_ROLES" envDefault:"owner" envSeparator:","`
	ServerURL      string        `env:"TRIAL_STATUS_SERVER_URL" envDefault:"http://localhost:8080/trial"`
	FetchTimeout   time.Duration `env:"TRIAL_STATUS_FETCH_TIMEOUT" envDefault:"10s"`
	RedisKeyPrefix string        `env:"TRIAL_STATUS_REDIS_PREFIX" envDefault:"trialstatus:"`
}

// NewStore builds the configured backend. client is only used by the redis
// backend and may be nil otherwise.
func (c Config) NewStore(client redis.Cmdable) (Store, error) {
	switch c.Backend {
	case BackendFile:
		return NewFileStore(c.CacheDir)
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("%w: redis backend needs a client", ErrInvalidBackend)
		}
		return NewRedisStore(client, WithKeyPrefix(c.RedisKeyPrefix)), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidBackend, c.Backend)
}
