package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/trialcycle/pkg/config"
)

type sample struct {
	Grace    int           `env:"GRACE" envDefault:"7"`
	URL      string        `env:"URL,required"`
	Interval time.Duration `env:"INTERVAL" envDefault:"1h"`
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("defaults and values", func(t *testing.T) {
		t.Parallel()
		var cfg sample
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{"URL": "https://app.test/upgrade"}))
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Grace)
		assert.Equal(t, "https://app.test/upgrade", cfg.URL)
		assert.Equal(t, time.Hour, cfg.Interval)
	})

	t.Run("prefix", func(t *testing.T) {
		t.Parallel()
		var cfg sample
		err := config.Load(&cfg,
			config.WithPrefix("TRIAL_"),
			config.WithEnvironment(map[string]string{"TRIAL_URL": "u", "TRIAL_GRACE": "3"}),
		)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Grace)
	})

	t.Run("missing required", func(t *testing.T) {
		t.Parallel()
		var cfg sample
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, config.Load[sample](nil), config.ErrNilPointer)
	})

	t.Run("must load panics", func(t *testing.T) {
		t.Parallel()
		var cfg sample
		assert.Panics(t, func() {
			config.MustLoad(&cfg, config.WithEnvironment(map[string]string{}))
		})
	})
}
