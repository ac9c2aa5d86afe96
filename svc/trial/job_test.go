package trial_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/trialcycle/pkg/audit"
	"github.com/dmitrymomot/trialcycle/pkg/logger"
	"github.com/dmitrymomot/trialcycle/pkg/notifications"
	"github.com/dmitrymomot/trialcycle/pkg/subscription"
	"github.com/dmitrymomot/trialcycle/pkg/template"
	"github.com/dmitrymomot/trialcycle/svc/trial"
)

// outbox records delivered notifications and can fail selected accounts.
type outbox struct {
	mu     sync.Mutex
	sent   []notifications.Notification
	failOn map[uuid.UUID]bool
}

func (o *outbox) Deliver(_ context.Context, n notifications.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failOn[n.AccountID] {
		return errors.New("provider rejected message")
	}
	o.sent = append(o.sent, n)
	return nil
}

func (o *outbox) Sent() []notifications.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]notifications.Notification(nil), o.sent...)
}

type failingAudit struct{}

func (failingAudit) Store(context.Context, ...audit.Record) error {
	return errors.New("audit sink offline")
}

func (failingAudit) Query(context.Context, audit.Criteria) ([]audit.Record, error) {
	return nil, nil
}

// racingStore simulates an admin rewriting status between read and write.
type racingStore struct {
	*subscription.MemoryStore
	racer uuid.UUID
}

func (s *racingStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to subscription.Status) error {
	if id == s.racer {
		s.SetStatus(id, subscription.StatusActive)
	}
	return s.MemoryStore.UpdateStatus(ctx, id, from, to)
}

type brokenCatalog struct{}

func (brokenCatalog) Active(context.Context) ([]template.Template, error) {
	return nil, errors.New("catalog unavailable")
}

type harness struct {
	store    *subscription.MemoryStore
	box      *outbox
	dispatch *notifications.MemoryStorage
	audit    *audit.MemoryStorage
	now      time.Time
}

func (h *harness) clock() time.Time { return h.now }

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()
	return &harness{
		store:    subscription.NewMemoryStore(),
		box:      &outbox{failOn: map[uuid.UUID]bool{}},
		dispatch: notifications.NewMemoryStorage(),
		audit:    audit.NewMemoryStorage(),
		now:      now,
	}
}

func (h *harness) job(t *testing.T, catalog template.Catalog, store subscription.Store, opts ...trial.Option) *trial.Job {
	t.Helper()
	if store == nil {
		store = h.store
	}
	manager := notifications.NewManager(h.dispatch,
		notifications.NewMultiDeliverer(
			notifications.WithChannel(template.ChannelEmail, h.box),
			notifications.WithMultiDelivererLogger(logger.Discard()),
		),
		notifications.WithManagerLogger(logger.Discard()),
	)
	recorder := audit.NewLogger(h.audit, audit.WithRunIDExtractor(trial.RunIDFromContext))
	base := []trial.Option{
		trial.WithClock(h.clock),
		trial.WithLogger(logger.Discard()),
		trial.WithUpgradeURL("https://app.test/upgrade"),
	}
	return trial.NewJob(store, catalog, manager, recorder, append(base, opts...)...)
}

func (h *harness) addAccount(status subscription.Status, start, end time.Time, name string) uuid.UUID {
	id := uuid.New()
	h.store.Put(&subscription.Subscription{
		AccountID:      id,
		PlanID:         "pro",
		Status:         status,
		TrialStartDate: start,
		TrialEndDate:   &end,
	}, subscription.Contact{Email: strings.ToLower(name) + "@example.com", FirstName: name})
	return id
}

func mustCatalog(t *testing.T, templates ...template.Template) *template.MemoryCatalog {
	t.Helper()
	c, err := template.NewMemoryCatalog(templates...)
	require.NoError(t, err)
	return c
}

func sevenDayTemplate() template.Template {
	return template.Template{
		Name:             "trial_ends_in_7_days",
		DaysBeforeExpiry: 7,
		Subject:          "{{first_name}}, {{days_remaining}} days left",
		BodyHTML:         "<p>Only {{days_remaining}} days left. <a href=\"{{upgrade_url}}\">Upgrade</a></p>",
		BodyText:         "Only {{days_remaining}} days left: {{upgrade_url}}",
		IsActive:         true,
	}
}

func statusOf(t *testing.T, s subscription.Store, id uuid.UUID) subscription.Status {
	t.Helper()
	sub, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	return sub.Status
}

func TestJob_SevenDayNotification(t *testing.T) {
	t.Parallel()

	h := newHarness(t, day(2024, 1, 24))
	id := h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "Ada")
	job := h.job(t, mustCatalog(t, sevenDayTemplate()), nil)

	summary, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.NotificationsSent)
	assert.Equal(t, 0, summary.StatusUpdates)
	assert.Empty(t, summary.Errors)

	sent := h.box.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, id, sent[0].AccountID)
	assert.Equal(t, "ada@example.com", sent[0].Recipient)
	assert.Equal(t, "Ada, 7 days left", sent[0].Subject)
	assert.Contains(t, sent[0].BodyHTML, "Only 7 days left")
	assert.Contains(t, sent[0].BodyHTML, "https://app.test/upgrade")
	assert.Equal(t, "Only 7 days left: https://app.test/upgrade", sent[0].BodyText)
	assert.Equal(t, summary.RunID, sent[0].RunID)

	log := h.dispatch.All()
	require.Len(t, log, 1)
	assert.Equal(t, notifications.DispatchSent, log[0].Status)
	assert.Equal(t, "trial_ends_in_7_days", log[0].Template)
}

func TestJob_TransitionsAndAudit(t *testing.T) {
	t.Parallel()

	h := newHarness(t, day(2024, 2, 3))
	expiring := h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "exp")
	suspending := h.addAccount(subscription.StatusTrialExpired, day(2023, 12, 1), day(2024, 1, 2), "sus")
	running := h.addAccount(subscription.StatusTrial, day(2024, 1, 20), day(2024, 2, 20), "run")

	summary, err := h.job(t, mustCatalog(t), nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.StatusUpdates)
	assert.Equal(t, subscription.StatusTrialExpired, statusOf(t, h.store, expiring))
	assert.Equal(t, subscription.StatusSuspended, statusOf(t, h.store, suspending))
	assert.Equal(t, subscription.StatusTrial, statusOf(t, h.store, running))

	records, err := h.audit.Query(context.Background(), audit.Criteria{AccountID: expiring})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, subscription.StatusTrial, records[0].OldStatus)
	assert.Equal(t, subscription.StatusTrialExpired, records[0].NewStatus)
	assert.Equal(t, "trial period ended", records[0].Reason)
	assert.Equal(t, summary.RunID, records[0].RunID)

	records, err = h.audit.Query(context.Background(), audit.Criteria{AccountID: suspending})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "grace period ended", records[0].Reason)
}

func TestJob_Idempotent(t *testing.T) {
	t.Parallel()

	t.Run("second run makes no transitions", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, day(2024, 2, 3))
		h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "a")
		job := h.job(t, mustCatalog(t), nil)

		first, err := job.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, first.StatusUpdates)

		second, err := job.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, second.StatusUpdates)
		assert.Len(t, h.audit.All(), 1)
	})

	t.Run("without ledger the same day sends again", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, day(2024, 1, 24))
		h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "a")
		job := h.job(t, mustCatalog(t, sevenDayTemplate()), nil)

		_, err := job.Run(context.Background())
		require.NoError(t, err)
		_, err = job.Run(context.Background())
		require.NoError(t, err)
		assert.Len(t, h.box.Sent(), 2)
	})

	t.Run("with ledger the second run sends nothing", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, day(2024, 1, 24))
		h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "a")
		job := h.job(t, mustCatalog(t, sevenDayTemplate()), nil, trial.WithLedger(trial.NewMemoryLedger()))

		first, err := job.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, first.NotificationsSent)

		second, err := job.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, second.NotificationsSent)
		assert.Equal(t, 0, second.StatusUpdates)
		assert.Len(t, h.box.Sent(), 1)
	})
}

func TestJob_LedgerNotifiesExtendedTrialAgain(t *testing.T) {
	t.Parallel()

	h := newHarness(t, day(2024, 1, 24))
	id := h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "a")
	ledger := trial.NewMemoryLedger()
	job := h.job(t, mustCatalog(t, sevenDayTemplate()), nil, trial.WithLedger(ledger))

	_, err := job.Run(context.Background())
	require.NoError(t, err)

	end := day(2024, 2, 29)
	h.store.Put(&subscription.Subscription{
		AccountID: id, Status: subscription.StatusTrial,
		TrialStartDate: day(2024, 1, 1), TrialEndDate: &end,
	}, subscription.Contact{Email: "a@example.com", FirstName: "a"})
	h.now = day(2024, 2, 22)

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NotificationsSent)
}

func TestJob_MonotonicAcrossDays(t *testing.T) {
	t.Parallel()

	h := newHarness(t, day(2024, 1, 25))
	id := h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "a")
	job := h.job(t, mustCatalog(t), nil)

	rank := map[subscription.Status]int{
		subscription.StatusTrial: 0, subscription.StatusTrialExpired: 1, subscription.StatusSuspended: 2,
	}
	prev := subscription.StatusTrial
	for range 20 {
		_, err := job.Run(context.Background())
		require.NoError(t, err)
		cur := statusOf(t, h.store, id)
		require.GreaterOrEqual(t, rank[cur], rank[prev])
		prev = cur
		h.now = h.now.AddDate(0, 0, 1)
	}
	assert.Equal(t, subscription.StatusSuspended, prev)

	records := h.audit.All()
	require.Len(t, records, 2)
	assert.Equal(t, subscription.StatusTrialExpired, records[0].NewStatus)
	assert.Equal(t, subscription.StatusSuspended, records[1].NewStatus)
}

func TestJob_FailureIsolation(t *testing.T) {
	t.Parallel()

	t.Run("missing trial end date is skipped and reported", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, day(2024, 2, 3))
		broken := uuid.New()
		h.store.Put(&subscription.Subscription{AccountID: broken, Status: subscription.StatusTrial}, subscription.Contact{})
		ok := h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "ok")

		summary, err := h.job(t, mustCatalog(t), nil).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, 1, summary.Processed)
		assert.Equal(t, subscription.StatusTrialExpired, statusOf(t, h.store, ok))

		require.Len(t, summary.Errors, 1)
		assert.Equal(t, broken, summary.Errors[0].AccountID)
		assert.Equal(t, trial.StageResolve, summary.Errors[0].Stage)
		assert.ErrorIs(t, summary.Errors[0], trial.ErrMissingTrialEndDate)
	})

	t.Run("compare-and-swap conflict leaves admin change intact", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, day(2024, 2, 3))
		raced := h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "raced")
		other := h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "other")
		store := &racingStore{MemoryStore: h.store, racer: raced}

		summary, err := h.job(t, mustCatalog(t), store).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, summary.StatusUpdates)
		assert.Equal(t, subscription.StatusActive, statusOf(t, h.store, raced))
		assert.Equal(t, subscription.StatusTrialExpired, statusOf(t, h.store, other))

		require.Len(t, summary.Errors, 1)
		assert.Equal(t, trial.StageStatusWrite, summary.Errors[0].Stage)
		assert.ErrorIs(t, summary.Errors[0], subscription.ErrStatusConflict)

		records := h.audit.All()
		require.Len(t, records, 1)
		assert.Equal(t, other, records[0].AccountID)
	})

	t.Run("audit failure keeps the transition", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, day(2024, 2, 3))
		id := h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "a")

		job := trial.NewJob(h.store, mustCatalog(t), notifications.NewManager(h.dispatch, h.box),
			audit.NewLogger(failingAudit{}),
			trial.WithClock(h.clock), trial.WithLogger(logger.Discard()))

		summary, err := job.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.StatusUpdates)
		assert.Empty(t, summary.Errors)
		assert.Equal(t, subscription.StatusTrialExpired, statusOf(t, h.store, id))
	})

	t.Run("delivery failure does not affect transition or other accounts", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, day(2024, 1, 31))
		grace := template.Template{
			Name: "trial_ended_today", DaysBeforeExpiry: 0,
			Subject: "Your trial ended", BodyText: "Upgrade at {{upgrade_url}}", IsActive: true,
		}
		failing := h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "fail")
		fine := h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "fine")
		h.box.failOn[failing] = true

		summary, err := h.job(t, mustCatalog(t, grace), nil).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, summary.StatusUpdates)
		assert.Equal(t, 1, summary.NotificationsSent)
		assert.Equal(t, 1, summary.NotificationsFailed)
		assert.Equal(t, subscription.StatusTrialExpired, statusOf(t, h.store, failing))
		assert.Equal(t, subscription.StatusTrialExpired, statusOf(t, h.store, fine))

		require.Len(t, summary.Errors, 1)
		assert.Equal(t, trial.StageNotify, summary.Errors[0].Stage)
		assert.Equal(t, "trial_ended_today", summary.Errors[0].Template)

		history, err := h.dispatch.List(context.Background(), failing, 0)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, notifications.DispatchFailed, history[0].Status)
	})

	t.Run("failed delivery releases the ledger claim", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, day(2024, 1, 24))
		id := h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "a")
		h.box.failOn[id] = true
		job := h.job(t, mustCatalog(t, sevenDayTemplate()), nil, trial.WithLedger(trial.NewMemoryLedger()))

		_, err := job.Run(context.Background())
		require.NoError(t, err)

		h.box.mu.Lock()
		h.box.failOn[id] = false
		h.box.mu.Unlock()

		summary, err := job.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.NotificationsSent)
	})

	t.Run("sms without deliverer or phone is a failed dispatch", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, day(2024, 1, 28))
		noPhone := h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "a")
		withPhone := uuid.New()
		end := day(2024, 1, 31)
		h.store.Put(&subscription.Subscription{
			AccountID:      withPhone,
			Status:         subscription.StatusTrial,
			TrialStartDate: day(2024, 1, 1),
			TrialEndDate:   &end,
		}, subscription.Contact{Phone: "+15550100", FirstName: "b"})
		sms := template.Template{
			Name: "sms_3_days", DaysBeforeExpiry: 3, Channel: template.ChannelSMS,
			BodyText: "3 days left", IsActive: true,
		}

		summary, err := h.job(t, mustCatalog(t, sms), nil).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, summary.NotificationsFailed)
		require.Len(t, summary.Errors, 2)

		byAccount := map[uuid.UUID]error{}
		for _, e := range summary.Errors {
			byAccount[e.AccountID] = e
		}
		assert.ErrorIs(t, byAccount[noPhone], notifications.ErrMissingRecipient)
		assert.ErrorIs(t, byAccount[withPhone], notifications.ErrChannelNotConfigured)
	})

	t.Run("catalog failure still applies transitions", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, day(2024, 2, 3))
		id := h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "a")

		summary, err := h.job(t, brokenCatalog{}, nil).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.StatusUpdates)
		assert.Equal(t, subscription.StatusTrialExpired, statusOf(t, h.store, id))
	})
}

type listFailStore struct{ *subscription.MemoryStore }

func (listFailStore) ListTrialFamily(context.Context) ([]subscription.TrialAccount, error) {
	return nil, errors.New("connection reset")
}

func TestJob_ListFailureFailsRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t, day(2024, 1, 1))
	reg := prometheus.NewRegistry()
	metrics := trial.NewMetrics(reg)
	job := h.job(t, mustCatalog(t), listFailStore{h.store}, trial.WithMetrics(metrics))

	_, err := job.Run(context.Background())
	assert.ErrorIs(t, err, trial.ErrRunFailed)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Runs.WithLabelValues("error")))
	assert.Error(t, job.RunOnce(context.Background()))
}

func TestJob_ParallelWorkersAndMetrics(t *testing.T) {
	t.Parallel()

	h := newHarness(t, day(2024, 1, 24))
	for range 25 {
		h.addAccount(subscription.StatusTrial, day(2024, 1, 1), day(2024, 1, 31), "n")
	}
	for range 5 {
		h.addAccount(subscription.StatusTrial, day(2023, 12, 1), day(2024, 1, 10), "x")
	}

	reg := prometheus.NewRegistry()
	metrics := trial.NewMetrics(reg)
	job := h.job(t, mustCatalog(t, sevenDayTemplate()), nil, trial.WithWorkers(8), trial.WithMetrics(metrics))

	summary, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 30, summary.Processed)
	assert.Equal(t, 25, summary.NotificationsSent)
	assert.Equal(t, 5, summary.StatusUpdates)
	assert.Len(t, h.box.Sent(), 25)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Runs.WithLabelValues("success")))
	assert.Equal(t, 30.0, testutil.ToFloat64(metrics.AccountsProcessed))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("trial", "suspended")))
	assert.Equal(t, 25.0, testutil.ToFloat64(metrics.Notifications.WithLabelValues("sent")))
}

func TestConfig_Options(t *testing.T) {
	t.Parallel()

	opts, err := trial.Config{GracePeriodDays: 3, Timezone: "UTC", Workers: 2}.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 4)

	_, err = trial.Config{GracePeriodDays: -1, Timezone: "UTC"}.Options()
	assert.ErrorIs(t, err, trial.ErrInvalidGracePeriod)

	_, err = trial.Config{Timezone: "Mars/Olympus"}.Options()
	assert.Error(t, err)

	_, err = trial.Config{Timezone: "UTC", LedgerBackend: "etcd"}.Options()
	assert.ErrorIs(t, err, trial.ErrInvalidLedgerBackend)

	_, err = trial.Config{Timezone: "UTC", LedgerBackend: trial.LedgerRedis}.Options()
	assert.NoError(t, err)
}
