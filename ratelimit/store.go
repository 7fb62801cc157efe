package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable indicates the counter backend is unreachable.
// Store implementations wrap it so callers can match with errors.Is and
// decide between failing open and failing closed.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Result is the outcome of one counter increment.
type Result struct {
	// Count is the number of increments observed in the current window,
	// including this one.
	Count int64
	// ResetAt is the instant the current window ends.
	ResetAt time.Time
}

// Store is the single capability a counter backend must provide.
//
// Increment must behave atomically: when no window is active for key (or
// the prior window has expired), a new window starts with Count = 1 and
// ResetAt = now + window; otherwise Count is the prior count plus one and
// ResetAt is unchanged. Concurrent increments on one key must never lose
// an update. Implementations must honor ctx deadlines rather than block.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (Result, error)
}

// Clock supplies the current instant; injected for testability.
type Clock func() time.Time
