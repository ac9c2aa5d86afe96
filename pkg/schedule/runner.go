package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/trialcycle/pkg/logger"
)

// Func is the job invoked on every tick.
type Func func(ctx context.Context) error

// Runner invokes a Func on a Schedule. Runs never overlap: a tick that
// fires while a run is in progress is skipped.
type Runner struct {
	name     string
	schedule Schedule
	fn       Func
	logger   *slog.Logger
	now      func() time.Time
	onStart  bool

	running sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger for the Runner.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithClock overrides the time source used to compute the next tick.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithRunOnStart runs the job once immediately when Start is called.
func WithRunOnStart() Option {
	return func(r *Runner) {
		r.onStart = true
	}
}

// NewRunner creates a scheduled runner.
func NewRunner(name string, s Schedule, fn Func, opts ...Option) *Runner {
	if s == nil || fn == nil {
		panic("schedule: schedule and func are required")
	}
	r := &Runner{
		name:     name,
		schedule: s,
		fn:       fn,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Trigger runs the job now. It returns ErrAlreadyRunning if another run
// is in flight.
func (r *Runner) Trigger(ctx context.Context) error {
	return r.Exclusive(ctx, r.fn)
}

// Exclusive runs fn in place of the job, under the same lock, so it never
// overlaps a scheduled run.
func (r *Runner) Exclusive(ctx context.Context, fn Func) error {
	if !r.running.TryLock() {
		return ErrAlreadyRunning
	}
	defer r.running.Unlock()

	start := time.Now()
	err := fn(ctx)
	attrs := []slog.Attr{
		logger.Component(r.name),
		logger.Duration(time.Since(start)),
	}
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "scheduled run failed", append(attrs, logger.Error(err))...)
		return err
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "scheduled run finished", attrs...)
	return nil
}

// Start blocks, running the job on every tick until ctx is canceled.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.LogAttrs(ctx, slog.LevelInfo, "scheduler started",
		logger.Component(r.name),
		slog.String("schedule", r.schedule.String()),
	)

	if r.onStart {
		r.tick(ctx)
	}

	for {
		next := r.schedule.Next(r.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.LogAttrs(context.WithoutCancel(ctx), slog.LevelInfo, "scheduler stopped", logger.Component(r.name))
			return nil
		case <-timer.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	if err := r.Trigger(ctx); errors.Is(err, ErrAlreadyRunning) {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "skipping tick, previous run still in progress",
			logger.Component(r.name),
		)
	}
}
