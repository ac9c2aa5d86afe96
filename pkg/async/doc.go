// Package async runs functions in the background and returns typed futures.
//
//	role := async.Async(ctx, userID, resolveRole)
//	status := async.Then(ctx, role, func(ctx context.Context, r Role) (Snapshot, error) {
//	    return fetch(ctx, r)
//	})
//	snap, err := status.Await(ctx)
//
// A future completes exactly once. Await returns early with the context
// error when the caller stops waiting; the background work keeps running
// until its own context is canceled.
package async
