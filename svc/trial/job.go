package trial

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/trialcycle/pkg/audit"
	"github.com/dmitrymomot/trialcycle/pkg/logger"
	"github.com/dmitrymomot/trialcycle/pkg/notifications"
	"github.com/dmitrymomot/trialcycle/pkg/statemachine"
	"github.com/dmitrymomot/trialcycle/pkg/subscription"
	"github.com/dmitrymomot/trialcycle/pkg/template"
)

// Notifier dispatches a rendered notification and records the outcome.
type Notifier interface {
	Send(ctx context.Context, notif notifications.Notification) error
}

// TransitionRecorder appends an audit entry for an applied transition.
type TransitionRecorder interface {
	Record(ctx context.Context, accountID uuid.UUID, from, to subscription.Status, opts ...audit.RecordOption) error
}

// Summary is the structured result of one run.
type Summary struct {
	RunID               string          `json:"run_id"`
	Processed           int             `json:"processed"`
	NotificationsSent   int             `json:"notifications_sent"`
	StatusUpdates       int             `json:"status_updates"`
	NotificationsFailed int             `json:"notifications_failed"`
	Skipped             int             `json:"skipped"`
	Errors              []*AccountError `json:"errors,omitempty"`
}

// Job reconciles stored trial statuses with their resolved state and
// dispatches matching notifications.
type Job struct {
	store     subscription.Store
	catalog   template.Catalog
	notifier  Notifier
	recorder  TransitionRecorder
	lifecycle *Lifecycle

	ledger     Ledger
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time
	location   *time.Location
	graceDays  int
	upgradeURL string
	workers    int
}

// Option configures a Job.
type Option func(*Job)

// WithLogger sets the logger for the Job.
func WithLogger(l *slog.Logger) Option {
	return func(j *Job) {
		j.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		j.now = now
	}
}

// WithLocation sets the timezone that decides the current calendar day.
func WithLocation(loc *time.Location) Option {
	return func(j *Job) {
		if loc != nil {
			j.location = loc
		}
	}
}

// WithGracePeriodDays overrides DefaultGracePeriodDays.
func WithGracePeriodDays(days int) Option {
	return func(j *Job) {
		j.graceDays = days
	}
}

// WithUpgradeURL sets the {{upgrade_url}} value.
func WithUpgradeURL(url string) Option {
	return func(j *Job) {
		j.upgradeURL = url
	}
}

// WithWorkers processes up to n accounts concurrently.
func WithWorkers(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.workers = n
		}
	}
}

// WithLedger enables notification dedup. Without a ledger every run sends
// each matching template again.
func WithLedger(l Ledger) Option {
	return func(j *Job) {
		j.ledger = l
	}
}

// WithMetrics records run metrics.
func WithMetrics(m *Metrics) Option {
	return func(j *Job) {
		j.metrics = m
	}
}

// NewJob creates a lifecycle job.
func NewJob(store subscription.Store, catalog template.Catalog, notifier Notifier, recorder TransitionRecorder, opts ...Option) *Job {
	if store == nil || catalog == nil || notifier == nil || recorder == nil {
		panic("trial: store, catalog, notifier and recorder are required")
	}
	j := &Job{
		store:     store,
		catalog:   catalog,
		notifier:  notifier,
		recorder:  recorder,
		lifecycle: NewLifecycle(store.UpdateStatus),
		logger:    slog.Default(),
		now:       time.Now,
		location:  time.UTC,
		graceDays: DefaultGracePeriodDays,
		workers:   1,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

type runIDKey struct{}

// RunIDFromContext returns the run id of the job run that owns ctx.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok
}

// accountResult is the outcome for one account.
type accountResult struct {
	skipped    bool
	transition bool
	sent       int
	failed     int
	errs       []*AccountError
}

// Run processes every trial-family subscription once. The returned error
// is set only when the accounts could not be listed; per-account failures
// are collected in Summary.Errors.
func (j *Job) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, runIDKey{}, runID)
	log := j.logger.With(logger.RunID(runID))
	now := j.now().In(j.location)

	summary := Summary{RunID: runID}

	accounts, err := j.store.ListTrialFamily(ctx)
	if err != nil {
		err = errors.Join(ErrRunFailed, err)
		log.LogAttrs(ctx, slog.LevelError, "failed to list trial accounts", logger.Error(err))
		j.metrics.observeRun(err, time.Since(start))
		return summary, err
	}

	templates, err := j.catalog.Active(ctx)
	if err != nil {
		// transitions still run; notifications are subordinate
		log.LogAttrs(ctx, slog.LevelError, "failed to load notification templates, skipping notifications", logger.Error(err))
		templates = nil
	}

	results := make([]accountResult, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.workers)
	for i, acc := range accounts {
		g.Go(func() error {
			results[i] = j.processAccount(gctx, log, now, acc, templates)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.skipped {
			summary.Skipped++
		} else {
			summary.Processed++
		}
		if r.transition {
			summary.StatusUpdates++
		}
		summary.NotificationsSent += r.sent
		summary.NotificationsFailed += r.failed
		summary.Errors = append(summary.Errors, r.errs...)
	}

	j.metrics.observeRun(nil, time.Since(start))
	log.LogAttrs(ctx, slog.LevelInfo, "trial lifecycle run finished",
		slog.Int("processed", summary.Processed),
		slog.Int("status_updates", summary.StatusUpdates),
		slog.Int("notifications_sent", summary.NotificationsSent),
		slog.Int("notifications_failed", summary.NotificationsFailed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", len(summary.Errors)),
		logger.Duration(time.Since(start)),
	)
	return summary, nil
}

// RunOnce adapts Run to a scheduled func.
func (j *Job) RunOnce(ctx context.Context) error {
	_, err := j.Run(ctx)
	return err
}

func (j *Job) processAccount(ctx context.Context, log *slog.Logger, now time.Time, acc subscription.TrialAccount, templates []template.Template) accountResult {
	var res accountResult
	sub := acc.Subscription
	log = log.With(logger.AccountID(sub.AccountID))

	if sub.TrialEndDate == nil {
		log.LogAttrs(ctx, slog.LevelWarn, "skipping account without trial end date", logger.Status(string(sub.Status)))
		res.skipped = true
		res.errs = append(res.errs, &AccountError{AccountID: sub.AccountID, Stage: StageResolve, Err: ErrMissingTrialEndDate})
		return res
	}
	j.metrics.accountProcessed()

	r := Resolve(now, sub.TrialStartDate, *sub.TrialEndDate, sub.Status, j.graceDays)
	if r.Computed != r.Status {
		log.LogAttrs(ctx, slog.LevelInfo, "stored status is ahead of resolved status, leaving it",
			logger.Status(string(sub.Status)),
			slog.String("resolved", string(r.Computed)),
		)
	}

	if r.Status != sub.Status {
		if err := j.transition(ctx, log, sub, r); err != nil {
			res.errs = append(res.errs, err)
		} else {
			res.transition = true
		}
	}

	for _, t := range template.Match(templates, r.DaysRemaining) {
		sent, err := j.notify(ctx, log, acc, t, r.DaysRemaining)
		if err != nil {
			res.failed++
			res.errs = append(res.errs, err)
			continue
		}
		if sent {
			res.sent++
		}
	}
	return res
}

// transition writes from -> to with compare-and-swap and appends the audit
// record. A failed audit append is logged and the transition stands.
func (j *Job) transition(ctx context.Context, log *slog.Logger, sub *subscription.Subscription, r Resolution) *AccountError {
	from, to := sub.Status, r.Status
	attr := logger.Transition(string(from), string(to))

	ev, err := apply(ctx, j.lifecycle, from, to, Change{AccountID: sub.AccountID, Resolution: r})
	switch {
	case statemachine.IsNoTransitionError(err) || statemachine.IsTransitionRejectedError(err):
		log.LogAttrs(ctx, slog.LevelError, "rejected lifecycle transition", attr, logger.Error(err))
		return &AccountError{AccountID: sub.AccountID, Stage: StageTransition, Err: err}
	case err != nil:
		level := slog.LevelError
		if errors.Is(err, subscription.ErrStatusConflict) {
			level = slog.LevelWarn
		}
		log.LogAttrs(ctx, level, "status write not applied", attr, logger.Error(err))
		return &AccountError{AccountID: sub.AccountID, Stage: StageStatusWrite, Err: err}
	}
	j.metrics.transition(from, to)
	log.LogAttrs(ctx, slog.LevelInfo, "status transition applied", attr)

	runID, _ := RunIDFromContext(ctx)
	if err := j.recorder.Record(ctx, sub.AccountID, from, to, audit.WithReason(ev.Reason()), audit.WithRunID(runID)); err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "failed to append transition audit record", attr, logger.Error(err))
	}
	return nil
}

// notify renders and dispatches one template. It reports false without an
// error when the ledger shows the template was already sent.
func (j *Job) notify(ctx context.Context, log *slog.Logger, acc subscription.TrialAccount, t template.Template, daysRemaining int) (bool, *AccountError) {
	sub := acc.Subscription
	log = log.With(logger.Template(t.Name), logger.DaysRemaining(daysRemaining))
	fail := func(stage Stage, err error) *AccountError {
		return &AccountError{AccountID: sub.AccountID, Stage: stage, Template: t.Name, Err: err}
	}

	key := LedgerKey{AccountID: sub.AccountID, Template: t.Name, TrialEndDate: *sub.TrialEndDate}
	if j.ledger != nil {
		claimed, err := j.ledger.Claim(ctx, key)
		if err != nil {
			log.LogAttrs(ctx, slog.LevelError, "notification ledger claim failed", logger.Error(err))
			j.metrics.notification("failed")
			return false, fail(StageLedger, err)
		}
		if !claimed {
			log.LogAttrs(ctx, slog.LevelDebug, "notification already sent for this trial window")
			j.metrics.notification("deduplicated")
			return false, nil
		}
	}

	rendered := template.Render(t, template.Vars{
		FirstName:     acc.Contact.FirstName,
		DaysRemaining: daysRemaining,
		UpgradeURL:    j.upgradeURL,
	})
	notif := notifications.FromRendered(sub.AccountID, recipient(acc.Contact, rendered.Channel), rendered)
	notif.RunID, _ = RunIDFromContext(ctx)

	if err := j.notifier.Send(ctx, notif); err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "notification dispatch failed", logger.Channel(string(rendered.Channel)), logger.Error(err))
		j.metrics.notification("failed")
		if j.ledger != nil {
			if rerr := j.ledger.Release(ctx, key); rerr != nil {
				log.LogAttrs(ctx, slog.LevelWarn, "failed to release notification ledger claim", logger.Error(rerr))
			}
		}
		return false, fail(StageNotify, err)
	}

	j.metrics.notification("sent")
	log.LogAttrs(ctx, slog.LevelInfo, "notification sent", logger.Channel(string(rendered.Channel)))
	return true, nil
}

func recipient(c subscription.Contact, ch template.Channel) string {
	if ch == template.ChannelSMS {
		return c.Phone
	}
	return c.Email
}
