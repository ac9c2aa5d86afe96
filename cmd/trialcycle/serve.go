package main

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/trialcycle/pkg/httpserver"
	"github.com/dmitrymomot/trialcycle/pkg/logger"
	"github.com/dmitrymomot/trialcycle/pkg/pg"
	"github.com/dmitrymomot/trialcycle/pkg/redis"
	"github.com/dmitrymomot/trialcycle/pkg/schedule"
	"github.com/dmitrymomot/trialcycle/svc/trial"
)

func serveCmd() *cobra.Command {
	var runOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the trial endpoints and run the job on TRIAL_SCHEDULE",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			sched, err := schedule.Parse(a.trialCfg.Schedule)
			if err != nil {
				return err
			}
			runnerOpts := []schedule.Option{schedule.WithLogger(a.log)}
			if runOnStart {
				runnerOpts = append(runnerOpts, schedule.WithRunOnStart())
			}
			if loc, err := a.trialCfg.Location(); err == nil {
				runnerOpts = append(runnerOpts, schedule.WithClock(func() time.Time { return time.Now().In(loc) }))
			}
			scheduled := trial.NewScheduled(a.job, sched, runnerOpts...)

			httpCfg, err := load[httpserver.Config]()
			if err != nil {
				return err
			}

			r := chi.NewRouter()
			r.Use(middleware.RequestID, middleware.Recoverer)
			r.Get("/healthz", httpserver.Liveness())
			checks := []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(a.pool)}}
			if a.redis != nil {
				checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(a.redis)})
			}
			r.Get("/readyz", httpserver.Readiness(a.log, httpCfg.ProbeTimeout, checks...))
			r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
			r.Mount("/trial", trial.Router(trial.RouterOptions{
				Trigger: scheduled.Trigger,
				Status:  a.status,
				Logger:  a.log,
			}))

			srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(a.log))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return scheduled.Start(gctx) })
			g.Go(func() error { return srv.Run(gctx, r) })
			if err := g.Wait(); err != nil {
				a.log.LogAttrs(ctx, slog.LevelError, "trial service stopped with error", logger.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run the job once at startup")
	return cmd
}
