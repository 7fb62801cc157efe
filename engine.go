package credkit

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kynelabs/credkit/lockout"
	"github.com/kynelabs/credkit/ratelimit"
	"github.com/kynelabs/credkit/token"
)

// Engine is the credential/session core. All operations are safe for
// concurrent use; per-user state lives in the CredentialStore and
// per-caller counters in the rate limit store.
type Engine struct {
	config      Config
	credentials CredentialStore
	tokens      *token.Manager
	hasher      PasswordHasher
	lockout     lockout.Policy

	loginLimiter   *ratelimit.Limiter
	refreshLimiter *ratelimit.Limiter

	metrics *Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// VerifyAccess validates an access token and returns the subject user
// ID. It touches no stores and performs no I/O.
func (e *Engine) VerifyAccess(accessToken string) (string, error) {
	start := e.now()
	userID, err := e.tokens.ParseAccess(accessToken)
	e.metrics.Observe(MetricVerifyLatency, e.now().Sub(start))
	if err != nil {
		return "", ErrTokenInvalid
	}
	return userID, nil
}

// MetricsSnapshot returns the current counter values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// normalizeIdentifier canonicalizes login identifiers so that lookups,
// rate limit keys, and the unique index all agree.
func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// fail logs an unexpected internal error and maps it to ErrInternal so
// callers never see store or crypto internals.
func (e *Engine) fail(op string, err error) error {
	e.log.Error().Err(err).Str("op", op).Msg("internal error")
	return ErrInternal
}

// storeUnavailable records a counter-store outage. Rate limited paths
// fail closed: an unreachable backend denies, never silently allows.
func (e *Engine) storeUnavailable(op string, err error) error {
	e.metrics.Inc(MetricStoreUnavailable)
	e.log.Warn().Err(err).Str("op", op).Msg("rate limit store unavailable")
	return ErrStoreUnavailable
}

// trackerFrom copies the lockout-relevant fields out of a user record.
func trackerFrom(user UserRecord) lockout.Tracker {
	return lockout.Tracker{
		FailedAttempts: user.FailedAttempts,
		LockUntil:      user.LockUntil,
	}
}

// applyTracker writes lockout state back onto the record.
func applyTracker(user *UserRecord, t lockout.Tracker) {
	user.FailedAttempts = t.FailedAttempts
	user.LockUntil = t.LockUntil
}

// checkLimiter runs one limiter, mapping store outages and denials.
// A nil limiter (rate limiting disabled) allows everything.
func (e *Engine) checkLimiter(ctx context.Context, limiter *ratelimit.Limiter, caller ratelimit.Caller, op string, deniedErr error, deniedMetric MetricID) (*ratelimit.Decision, error) {
	if limiter == nil {
		return nil, nil
	}
	decision, err := limiter.Check(ctx, caller)
	if err != nil {
		return nil, e.storeUnavailable(op, err)
	}
	if !decision.Allowed {
		e.metrics.Inc(deniedMetric)
		e.log.Info().
			Str("op", op).
			Str("addr", caller.Addr).
			Dur("retry_after", decision.RetryAfter).
			Msg("rate limited")
		return &decision, deniedErr
	}
	return &decision, nil
}
