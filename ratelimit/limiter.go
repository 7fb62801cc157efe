package ratelimit

import (
	"context"
	"strings"
	"time"
)

// Policy is one scope's fixed-window budget. Keys are laid out as
// "{KeyPrefix}:{Scope}:{derivedKey}".
type Policy struct {
	Scope     string
	Limit     int64
	Window    time.Duration
	KeyPrefix string
}

// Caller carries the request attributes a KeyFunc may derive a counter
// key from.
type Caller struct {
	// Addr is the caller's network address (typically the client IP).
	Addr string
	// Identifier is an optional secondary identifier such as the login
	// email. Normalized by the KeyFunc.
	Identifier string
}

// KeyFunc derives the counter key fragment for a caller.
type KeyFunc func(Caller) string

// AddressKey throttles per caller address only.
func AddressKey(c Caller) string {
	if c.Addr == "" {
		return "unknown"
	}
	return c.Addr
}

// AddressIdentifierKey composes the caller address with the trimmed,
// lowercased identifier. Composing both narrows collateral lockout of
// shared egress addresses while still throttling credential stuffing
// aimed at one identifier.
func AddressIdentifierKey(c Caller) string {
	id := strings.ToLower(strings.TrimSpace(c.Identifier))
	if id == "" {
		return AddressKey(c)
	}
	return AddressKey(c) + ":" + id
}

// Decision is the limiter verdict plus the response metadata attached to
// every rate-limited operation.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
	// RetryAfter is set only when denied: whole seconds until the window
	// resets, minimum one second.
	RetryAfter time.Duration
}

// Limiter applies one Policy over a Store. Safe for concurrent use when
// the Store is.
type Limiter struct {
	store  Store
	policy Policy
	keyFn  KeyFunc
	now    Clock
}

// Option tunes a Limiter at construction.
type Option func(*Limiter)

// WithKeyFunc overrides the default [AddressKey] derivation.
func WithKeyFunc(fn KeyFunc) Option {
	return func(l *Limiter) { l.keyFn = fn }
}

// WithClock overrides the clock (tests).
func WithClock(now Clock) Option {
	return func(l *Limiter) { l.now = now }
}

// New builds a Limiter for policy over store.
func New(store Store, policy Policy, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		policy: policy,
		keyFn:  AddressKey,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check counts this request against the caller's window and decides.
// A store failure is returned as-is (wrapping ErrStoreUnavailable) and is
// distinguishable from a denial, which is a nil-error Decision with
// Allowed=false.
func (l *Limiter) Check(ctx context.Context, caller Caller) (Decision, error) {
	key := l.policy.KeyPrefix + ":" + l.policy.Scope + ":" + l.keyFn(caller)

	res, err := l.store.Increment(ctx, key, l.policy.Window)
	if err != nil {
		return Decision{}, err
	}

	remaining := l.policy.Limit - res.Count
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{
		Limit:     l.policy.Limit,
		Remaining: remaining,
		ResetAt:   res.ResetAt,
	}
	if res.Count <= l.policy.Limit {
		d.Allowed = true
		return d, nil
	}

	secs := int64((res.ResetAt.Sub(l.now()) + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	d.RetryAfter = time.Duration(secs) * time.Second
	return d, nil
}
