// Package ratelimit implements fixed-window request throttling over a
// pluggable atomic counter store.
//
// The whole backend contract is one operation: Store.Increment adds one
// hit under a key and returns the window's running count and reset
// instant — starting a fresh window atomically when none is active. Three
// implementations ship: [MemoryStore] (single process, mutex),
// [PostgresStore] (shared database, conditional updates), and
// [RedisStore] (distributed cache, server-side script). [Limiter] turns a
// count into an allow/deny decision with response metadata and is fully
// decoupled from which store backs it.
//
// Backend outages surface as errors wrapping [ErrStoreUnavailable] so
// callers can tell an outage from a denial and choose their failure
// posture; they are never silently treated as "allowed".
package ratelimit
