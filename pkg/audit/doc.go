// Package audit records subscription status transitions.
//
// Every status change applied by the trial lifecycle job is appended as a
// Record holding the account, the old and new status, a reason and the run
// that produced it. Records are append-only; storage backends never update
// or delete them.
//
//	storage := audit.NewPGStorage(pool)
//	log := audit.NewLogger(storage, audit.WithRunIDExtractor(runIDFromContext))
//
//	err := log.Record(ctx, accountID, subscription.StatusTrial, subscription.StatusTrialExpired,
//	    audit.WithReason("trial period ended"),
//	)
//
// A failed append is returned to the caller. The trial job logs it and
// keeps the transition, since the status row is already written.
package audit
