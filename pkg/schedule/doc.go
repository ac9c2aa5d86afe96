// Package schedule runs a periodic job on a Schedule without ever running
// two invocations at once.
//
//	sched, err := schedule.Parse("daily@02:00")
//	runner := schedule.NewRunner("trial-lifecycle", sched, job.RunOnce,
//	    schedule.WithLogger(log),
//	)
//	go runner.Start(ctx)
//
//	// elsewhere, e.g. an admin endpoint
//	err := runner.Trigger(ctx) // ErrAlreadyRunning while a run is in flight
package schedule
