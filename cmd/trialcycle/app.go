package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/trialcycle/migrations"
	"github.com/dmitrymomot/trialcycle/pkg/audit"
	"github.com/dmitrymomot/trialcycle/pkg/email"
	"github.com/dmitrymomot/trialcycle/pkg/notifications"
	"github.com/dmitrymomot/trialcycle/pkg/pg"
	"github.com/dmitrymomot/trialcycle/pkg/redis"
	"github.com/dmitrymomot/trialcycle/pkg/subscription"
	"github.com/dmitrymomot/trialcycle/pkg/template"
	"github.com/dmitrymomot/trialcycle/svc/trial"
)

// app holds the server-side dependencies shared by serve and run.
type app struct {
	log      *slog.Logger
	pool     *pgxpool.Pool
	redis    *goredis.Client // nil unless the ledger lives in redis
	trialCfg trial.Config
	registry *prometheus.Registry
	job      *trial.Job
	status   *trial.StatusService
}

func connectDB(ctx context.Context, log *slog.Logger) (*pgxpool.Pool, pg.Config, error) {
	cfg, err := load[pg.Config]()
	if err != nil {
		return nil, cfg, err
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}
	if cfg.AutoMigrate {
		if err := pg.Migrate(ctx, pool, cfg, migrations.FS, log); err != nil {
			pool.Close()
			return nil, cfg, err
		}
	}
	return pool, cfg, nil
}

func newApp(ctx context.Context) (*app, error) {
	base, err := load[appConfig]()
	if err != nil {
		return nil, err
	}
	log := newLogger(base)

	trialCfg, err := load[trial.Config]()
	if err != nil {
		return nil, err
	}
	opts, err := trialCfg.Options()
	if err != nil {
		return nil, err
	}
	emailCfg, err := load[email.Config]()
	if err != nil {
		return nil, err
	}
	sender, err := email.NewSender(emailCfg)
	if err != nil {
		return nil, err
	}

	pool, _, err := connectDB(ctx, log)
	if err != nil {
		return nil, err
	}

	catalog, err := newCatalog(trialCfg, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	deliverer := notifications.NewMultiDeliverer(
		notifications.WithChannel(template.ChannelEmail, notifications.NewEmailDeliverer(sender)),
		notifications.WithMultiDelivererLogger(log),
	)
	manager := notifications.NewManager(notifications.NewPGStorage(pool), deliverer,
		notifications.WithManagerLogger(log),
	)
	recorder := audit.NewLogger(audit.NewPGStorage(pool), audit.WithRunIDExtractor(trial.RunIDFromContext))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	jobOpts := append(slices.Clone(opts), trial.WithLogger(log), trial.WithMetrics(trial.NewMetrics(registry)))
	var rdb *goredis.Client
	if trialCfg.DedupNotifications {
		ledger, client, err := newLedger(ctx, trialCfg, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		rdb = client
		jobOpts = append(jobOpts, trial.WithLedger(ledger))
	}

	store := subscription.NewPGStore(pool)
	a := &app{
		log:      log,
		pool:     pool,
		redis:    rdb,
		trialCfg: trialCfg,
		registry: registry,
		job:      trial.NewJob(store, catalog, manager, recorder, jobOpts...),
		status:   trial.NewStatusService(store, opts...),
	}
	log.LogAttrs(ctx, slog.LevelInfo, "trial service initialized",
		slog.String("schedule", trialCfg.Schedule),
		slog.String("timezone", trialCfg.Timezone),
		slog.Int("grace_period_days", trialCfg.GracePeriodDays),
		slog.Int("workers", trialCfg.Workers),
		slog.Bool("dedup", trialCfg.DedupNotifications),
		slog.String("ledger", trialCfg.LedgerBackend),
	)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.pool.Close()
}

// newLedger picks the notification ledger backend. The returned client is
// non-nil only for the redis backend.
func newLedger(ctx context.Context, cfg trial.Config, pool *pgxpool.Pool) (trial.Ledger, *goredis.Client, error) {
	switch cfg.LedgerBackend {
	case "", trial.LedgerPostgres:
		return trial.NewPGLedger(pool), nil, nil
	case trial.LedgerRedis:
		redisCfg, err := load[redis.Config]()
		if err != nil {
			return nil, nil, err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, nil, err
		}
		return trial.NewRedisLedger(client, 0), client, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", trial.ErrInvalidLedgerBackend, cfg.LedgerBackend)
	}
}

// newCatalog reads templates from TRIAL_TEMPLATES_FILE when set, otherwise
// from the notification_templates table.
func newCatalog(cfg trial.Config, pool *pgxpool.Pool) (template.Catalog, error) {
	if cfg.TemplatesFile == "" {
		return template.NewPGCatalog(pool), nil
	}
	c, err := template.LoadYAMLFile(cfg.TemplatesFile)
	if err != nil {
		return nil, fmt.Errorf("load templates from %s: %w", cfg.TemplatesFile, err)
	}
	return c, nil
}

