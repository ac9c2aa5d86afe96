// Package trialstatus keeps a client-side view of an account's trial state.
//
// A session first publishes the last cached Snapshot so a UI can render
// immediately, then resolves the account's role and fetches the
// server-resolved state in the background. The fetched state replaces the
// cached one through Cache.SetAuthoritative, the only writer of the cache.
//
// The cache is advisory. Access decisions go through Gate, which always asks
// the server and denies when it cannot get an answer:
//
//	gate := trialstatus.NewGate(fetcher, trialstatus.RequireActive)
//	if !gate.Allow(ctx, accountID, "export", usage) {
//	    return errForbidden
//	}
package trialstatus
