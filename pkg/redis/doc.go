// Package redis opens go-redis clients from REDIS_* environment settings.
//
// Two components use it: the server-side notification ledger
// (TRIAL_LEDGER_BACKEND=redis) and the client-side trial status snapshot
// store (TRIAL_STATUS_CACHE_BACKEND=redis).
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package redis
