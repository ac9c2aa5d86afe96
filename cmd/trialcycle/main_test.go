package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/trialcycle/pkg/template"
	"github.com/dmitrymomot/trialcycle/svc/trial"
)

func TestRootCommand(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "run", "migrate", "status"})

	root.SetArgs([]string{"status"})
	root.SetOut(new(discard))
	root.SetErr(new(discard))
	assert.Error(t, root.ExecuteContext(context.Background()), "status requires an account id")
}

func TestNewCatalog_YAMLFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
templates:
  - name: trial_ends_in_3_days
    days_before_expiry: 3
    subject: "{{first_name}}, 3 days left"
    body_text: "Upgrade at {{upgrade_url}}"
    is_active: true
`), 0o600))

	c, err := newCatalog(trial.Config{TemplatesFile: path}, nil)
	require.NoError(t, err)
	active, err := c.Active(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 3, active[0].DaysBeforeExpiry)

	_, err = newCatalog(trial.Config{TemplatesFile: filepath.Join(t.TempDir(), "missing.yaml")}, nil)
	assert.ErrorIs(t, err, template.ErrFailedToLoadCatalog)
}

func TestNewLedger(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := newLedger(context.Background(), trial.Config{LedgerBackend: "etcd"}, nil)
		assert.ErrorIs(t, err, trial.ErrInvalidLedgerBackend)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		t.Setenv("REDIS_URL", "redis://"+mr.Addr()+"/0")

		ledger, client, err := newLedger(context.Background(), trial.Config{LedgerBackend: trial.LedgerRedis}, nil)
		require.NoError(t, err)
		require.NotNil(t, client)
		t.Cleanup(func() { _ = client.Close() })
		assert.IsType(t, &trial.RedisLedger{}, ledger)
	})
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
