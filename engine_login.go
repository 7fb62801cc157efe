package credkit

import (
	"context"
	"errors"

	"github.com/kynelabs/credkit/lockout"
	"github.com/kynelabs/credkit/ratelimit"
)

// Login authenticates a credential pair and issues a token pair. The
// returned Decision carries rate metadata for response headers; it is
// non-nil whenever the limiter ran, including on denial.
//
// The error surface is deliberately narrow: unknown identifier and
// wrong password both return ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, caller ratelimit.Caller, identifier, plaintext string) (TokenPair, *ratelimit.Decision, error) {
	identifier = normalizeIdentifier(identifier)
	caller.Identifier = identifier

	decision, err := e.checkLimiter(ctx, e.loginLimiter, caller, "login", ErrLoginRateLimited, MetricLoginRateLimited)
	if err != nil {
		return TokenPair{}, decision, err
	}

	user, err := e.credentials.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metrics.Inc(MetricLoginFailure)
			return TokenPair{}, decision, ErrInvalidCredentials
		}
		return TokenPair{}, decision, e.fail("login", err)
	}

	now := e.now()
	tracker := trackerFrom(user)

	// Locked accounts never reach the password verifier.
	if e.lockout.Check(&tracker, now) == lockout.Locked {
		e.metrics.Inc(MetricLoginLocked)
		return TokenPair{}, decision, ErrAccountLocked
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		return TokenPair{}, decision, e.fail("login", err)
	}
	if !ok {
		lockedNow := e.lockout.Failure(&tracker, now)
		applyTracker(&user, tracker)
		user.UpdatedAt = now
		if saveErr := e.credentials.SaveAuthState(ctx, user); saveErr != nil {
			return TokenPair{}, decision, e.fail("login", saveErr)
		}
		e.metrics.Inc(MetricLoginFailure)
		if lockedNow {
			e.metrics.Inc(MetricLoginLocked)
			e.log.Info().Str("user_id", user.ID).Msg("account locked")
			return TokenPair{}, decision, ErrAccountLocked
		}
		return TokenPair{}, decision, ErrInvalidCredentials
	}

	e.lockout.Success(&tracker)
	applyTracker(&user, tracker)

	pair, err := e.issuePair(user.ID)
	if err != nil {
		return TokenPair{}, decision, e.fail("login", err)
	}

	user.RefreshTokenHash = e.tokens.HashForStorage(pair.RefreshToken)
	user.UpdatedAt = now
	if err := e.credentials.SaveAuthState(ctx, user); err != nil {
		return TokenPair{}, decision, e.fail("login", err)
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.log.Info().Str("user_id", user.ID).Msg("login")
	return pair, decision, nil
}

func (e *Engine) issuePair(userID string) (TokenPair, error) {
	access, err := e.tokens.IssueAccess(userID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := e.tokens.IssueRefresh(userID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
