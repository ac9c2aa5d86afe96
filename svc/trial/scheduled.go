package trial

import (
	"context"

	"github.com/dmitrymomot/trialcycle/pkg/schedule"
)

// Scheduled runs a Job on a schedule and on demand, never two at once.
type Scheduled struct {
	job    *Job
	runner *schedule.Runner
}

// NewScheduled wraps job in a schedule.Runner named "trial-lifecycle".
func NewScheduled(job *Job, s schedule.Schedule, opts ...schedule.Option) *Scheduled {
	if job == nil {
		panic("trial: job cannot be nil")
	}
	return &Scheduled{
		job:    job,
		runner: schedule.NewRunner("trial-lifecycle", s, job.RunOnce, opts...),
	}
}

// Start blocks running the job on every tick until ctx is canceled.
func (s *Scheduled) Start(ctx context.Context) error {
	return s.runner.Start(ctx)
}

// Trigger runs the job now and returns its summary, or
// schedule.ErrAlreadyRunning while another run is in flight.
func (s *Scheduled) Trigger(ctx context.Context) (Summary, error) {
	var summary Summary
	err := s.runner.Exclusive(ctx, func(ctx context.Context) error {
		var err error
		summary, err = s.job.Run(ctx)
		return err
	})
	return summary, err
}
