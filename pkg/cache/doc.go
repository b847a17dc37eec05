// Package cache provides the key/value counter store used for per-tenant
// rate counters.
//
// # Overview
//
// Counters are plain int64 values addressed by string keys, each with its
// own time-to-live. Two backends are provided:
//
//   - Memory: process-local map with lazy expiry and a background sweeper
//   - Redis: shared counters backed by go-redis (MULTI/EXEC increments)
//
// # Usage
//
//	store := cache.NewMemoryStore()
//	defer store.Close()
//
//	n, err := store.Incr(ctx, cache.RateKey("tenant-1", "minute"), time.Minute)
//	if err != nil {
//	    // callers decide whether to fail open
//	}
//
// # Thread Safety
//
// Both backends support concurrent increments without lost updates.
package cache
