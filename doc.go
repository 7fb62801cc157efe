// Package credkit is a credential/session service core: it authenticates
// users, issues and rotates bearer session credentials, and throttles
// abusive request patterns with pluggable fixed-window rate limiting.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// credkit is the public surface. It exposes [Engine], [Builder], [Config],
// sentinel errors, and value types ([TokenPair], [UserRecord],
// [MetricsSnapshot]). Token signing lives in token/, password hashing in
// password/, the lockout state machine in lockout/, counter stores in
// ratelimit/, and credential persistence in credstore/.
//
// # What this package must NOT do
//
//   - Serve HTTP, validate request bodies, or configure CORS/proxies; the
//     caller owns the transport. See examples/http-minimal for glue.
//   - Distinguish "unknown identifier" from "wrong credential" (or
//     "unknown subject" from "bad token") in any error it returns.
//   - Depend on which counter store backs the rate limiter; it holds only
//     the [ratelimit.Store] contract.
package credkit
