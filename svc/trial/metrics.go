package trial

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/trialcycle/pkg/subscription"
)

// Metrics holds the Prometheus collectors for the lifecycle job.
type Metrics struct {
	Runs              *prometheus.CounterVec
	AccountsProcessed prometheus.Counter
	Transitions       *prometheus.CounterVec
	Notifications     *prometheus.CounterVec
	Duration          prometheus.Histogram
}

// NewMetrics creates and registers the job collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trial_job_runs_total",
			Help: "Lifecycle job runs by result.",
		}, []string{"result"}),
		AccountsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trial_job_accounts_processed_total",
			Help: "Trial accounts evaluated by the lifecycle job.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trial_job_transitions_total",
			Help: "Applied status transitions.",
		}, []string{"from", "to"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trial_job_notifications_total",
			Help: "Notification dispatch attempts by result.",
		}, []string{"result"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trial_job_duration_seconds",
			Help:    "Lifecycle job run duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Runs, m.AccountsProcessed, m.Transitions, m.Notifications, m.Duration)
	return m
}

func (m *Metrics) observeRun(err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.Runs.WithLabelValues(result).Inc()
	m.Duration.Observe(d.Seconds())
}

func (m *Metrics) accountProcessed() {
	if m != nil {
		m.AccountsProcessed.Inc()
	}
}

func (m *Metrics) transition(from, to subscription.Status) {
	if m != nil {
		m.Transitions.WithLabelValues(string(from), string(to)).Inc()
	}
}

func (m *Metrics) notification(result string) {
	if m != nil {
		m.Notifications.WithLabelValues(result).Inc()
	}
}
