package trial

import (
	"fmt"
	"time"
)

// Notification ledger backends.
const (
	LedgerPostgres = "postgres"
	LedgerRedis    = "redis"
)

// Config holds reconciliation job settings.
type Config struct {
	GracePeriodDays    int    `env:"TRIAL_GRACE_PERIOD_DAYS" envDefault:"7"`
	UpgradeURL         string `env:"TRIAL_UPGRADE_URL" envDefault:"https://example.com/billing/upgrade"`
	Workers            int    `env:"TRIAL_WORKERS" envDefault:"1"`
	DedupNotifications bool   `env:"TRIAL_DEDUP_NOTIFICATIONS" envDefault:"false"`
	LedgerBackend      string `env:"TRIAL_LEDGER_BACKEND" envDefault:"postgres"`
	Schedule           string `env:"TRIAL_SCHEDULE" envDefault:"daily@02:00"`
	Timezone           string `env:"TRIAL_TIMEZONE" envDefault:"UTC"`
	TemplatesFile      string `env:"TRIAL_TEMPLATES_FILE"` // YAML catalog; empty reads templates from Postgres
}

// Location loads the timezone that decides which calendar day "today" is.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("trial: invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Options converts the config into job options.
func (c Config) Options() ([]Option, error) {
	if c.GracePeriodDays < 0 {
		return nil, ErrInvalidGracePeriod
	}
	switch c.LedgerBackend {
	case "", LedgerPostgres, LedgerRedis:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLedgerBackend, c.LedgerBackend)
	}
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithGracePeriodDays(c.GracePeriodDays),
		WithUpgradeURL(c.UpgradeURL),
		WithWorkers(c.Workers),
		WithLocation(loc),
	}, nil
}
