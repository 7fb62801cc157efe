package credkit

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/kynelabs/credkit/ratelimit"
)

// Refresh rotates a refresh token: the presented token is verified
// against the stored digest, a fresh pair is issued, and the stored
// digest is swapped with a compare-and-set keyed on the prior value.
// Under concurrent presentation of the same token exactly one call
// wins; the rest fail as replays.
//
// Every verification failure collapses to ErrRefreshInvalid so callers
// cannot distinguish expiry, forgery, or reuse.
func (e *Engine) Refresh(ctx context.Context, caller ratelimit.Caller, refreshToken string) (TokenPair, *ratelimit.Decision, error) {
	decision, err := e.checkLimiter(ctx, e.refreshLimiter, caller, "refresh", ErrRefreshRateLimited, MetricRefreshRateLimited)
	if err != nil {
		return TokenPair{}, decision, err
	}

	user, presentedHash, err := e.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, decision, err
	}

	pair, err := e.issuePair(user.ID)
	if err != nil {
		return TokenPair{}, decision, e.fail("refresh", err)
	}

	swapped, err := e.credentials.RotateRefreshHash(ctx, user.ID, presentedHash, e.tokens.HashForStorage(pair.RefreshToken))
	if err != nil {
		return TokenPair{}, decision, e.fail("refresh", err)
	}
	if !swapped {
		// Lost the race: another caller rotated first, so this
		// presentation is now a replay.
		e.metrics.Inc(MetricRefreshReuseDetected)
		e.metrics.Inc(MetricRefreshFailure)
		e.log.Warn().Str("user_id", user.ID).Msg("refresh token reuse detected")
		return TokenPair{}, decision, ErrRefreshInvalid
	}

	e.metrics.Inc(MetricRefreshSuccess)
	return pair, decision, nil
}

// Logout invalidates the current refresh token. The presented token
// must still be the live one; a stale token cannot log the session out.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	user, presentedHash, err := e.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}

	swapped, err := e.credentials.RotateRefreshHash(ctx, user.ID, presentedHash, "")
	if err != nil {
		return e.fail("logout", err)
	}
	if !swapped {
		e.metrics.Inc(MetricRefreshReuseDetected)
		return ErrRefreshInvalid
	}

	e.metrics.Inc(MetricLogout)
	e.log.Info().Str("user_id", user.ID).Msg("logout")
	return nil
}

// verifyRefresh parses the token, loads its subject, and checks the
// presented digest against the stored one in constant time.
func (e *Engine) verifyRefresh(ctx context.Context, refreshToken string) (UserRecord, string, error) {
	userID, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return UserRecord{}, "", ErrRefreshInvalid
	}

	user, err := e.credentials.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metrics.Inc(MetricRefreshFailure)
			return UserRecord{}, "", ErrRefreshInvalid
		}
		return UserRecord{}, "", e.fail("refresh", err)
	}

	if user.RefreshTokenHash == "" {
		e.metrics.Inc(MetricRefreshFailure)
		return UserRecord{}, "", ErrRefreshInvalid
	}

	presentedHash := e.tokens.HashForStorage(refreshToken)
	if subtle.ConstantTimeCompare([]byte(presentedHash), []byte(user.RefreshTokenHash)) != 1 {
		e.metrics.Inc(MetricRefreshReuseDetected)
		e.metrics.Inc(MetricRefreshFailure)
		e.log.Warn().Str("user_id", user.ID).Msg("refresh token reuse detected")
		return UserRecord{}, "", ErrRefreshInvalid
	}

	return user, presentedHash, nil
}
