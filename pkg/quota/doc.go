// Package quota admits or rejects tenant requests against per-minute rate
// limits and monthly usage quotas.
//
// # Per-minute rate
//
// Each tenant has a counter in a cache.Store under the key
// "ratelimit:<tenant>:minute". A request is admitted while the counter is
// below the tenant's limit; admitting increments the counter and refreshes
// its 60 second TTL. The counter is never deleted explicitly; the window
// ends when the TTL expires.
//
// If the counter store fails, the check fails open: the request is admitted
// and the failure is logged and counted.
//
// # Monthly quota
//
// The monthly check compares the persisted usage on the tenant row with the
// tenant's monthly limit. Usage is incremented asynchronously after a
// request is admitted, so the persisted value can lag the true request count
// under bursty load. There is no reconciliation pass.
//
// # Usage
//
//	enforcer := quota.NewEnforcer(counters, tenants, quota.Config{})
//	decision, err := enforcer.Admit(ctx, t)
//	if errors.Is(err, quota.ErrRateLimitExceeded) {
//	    // respond 429
//	}
package quota
