// Package cache provides a generic, thread-safe LRU cache used as the
// in-process layer in front of persistent trial status snapshots.
//
//	c := cache.NewLRU[string, Snapshot](256, cache.WithEvictCallback(func(k string, _ Snapshot) {
//	    log.Debug("snapshot evicted", "key", k)
//	}))
//	c.Set("account-1", snap)
//	if s, ok := c.Get("account-1"); ok {
//	    // ...
//	}
//
// Get, Set and Delete are O(1). When the cache is full, Set evicts the
// least recently used entry.
package cache
