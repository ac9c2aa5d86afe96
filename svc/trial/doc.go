// Package trial moves trial subscriptions through their lifecycle.
//
// Resolve computes the authoritative state of one subscription from its
// trial dates and the current day. Job is the batch driver: it resolves
// every trial-family subscription, applies forward-only status transitions
// with a compare-and-swap write, appends an audit record per transition and
// dispatches the templates whose trigger day matches.
//
//	trial -> trial_expired -> suspended
//
// A status never moves backwards through this package. Accounts are
// processed independently; one account failing never stops the batch.
package trial
