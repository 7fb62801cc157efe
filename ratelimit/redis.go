package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// One round trip, no client-side race window: the increment and the
// first-hit expiry set execute inside a single server-side script.
const incrementScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`

var incrementLua = redis.NewScript(incrementScript)

// RedisStore is a distributed counter store backed by a networked cache.
// The client establishes connections lazily and reuses them; an
// unreachable backend surfaces as ErrStoreUnavailable rather than a
// silent pass.
type RedisStore struct {
	client redis.UniversalClient
	now    Clock
}

// RedisOption tunes a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisClock overrides the store clock (tests).
func WithRedisClock(now Clock) RedisOption {
	return func(s *RedisStore) { s.now = now }
}

// NewRedisStore wraps an existing client. The caller owns the client's
// lifecycle.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment implements [Store] via the atomic server-side script.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (Result, error) {
	vals, err := incrementLua.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("%w: unexpected script reply", ErrStoreUnavailable)
	}

	count, ttlMs := vals[0], vals[1]
	// PTTL can report -1/-2 if the key raced away; fall back to a full
	// window so the caller still gets a sane reset instant.
	if ttlMs <= 0 {
		ttlMs = window.Milliseconds()
	}
	return Result{
		Count:   count,
		ResetAt: s.now().Add(time.Duration(ttlMs) * time.Millisecond),
	}, nil
}
