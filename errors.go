package credkit

import "errors"

var (
	// ErrInvalidCredentials is returned by Login when the identifier is
	// unknown or the password does not match. The two cases are
	// deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned by Login while the record is inside an
	// active lockout window, or on the attempt that triggers one.
	ErrAccountLocked = errors.New("account locked")
	// ErrLoginRateLimited is returned by Login when the login scope
	// counter exceeds its limit.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is returned by Refresh when the refresh scope
	// counter exceeds its limit.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrRefreshInvalid covers every refresh/logout token failure:
	// expired, malformed, unknown subject, no active session, and
	// replayed/superseded tokens. Callers must not learn which.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrTokenInvalid is returned by VerifyAccess for any access token
	// failure (expiry, signature, malformed input).
	ErrTokenInvalid = errors.New("invalid token")
	// ErrDuplicateIdentifier is returned by Register when the identifier
	// is already taken.
	ErrDuplicateIdentifier = errors.New("identifier already registered")
	// ErrRegisterInvalid is returned by Register on empty inputs.
	ErrRegisterInvalid = errors.New("invalid registration request")
	// ErrUserNotFound is returned by CredentialStore implementations when
	// a lookup misses. The engine never surfaces it to callers.
	ErrUserNotFound = errors.New("user not found")
	// ErrStoreUnavailable is returned when the rate-limit backend is
	// unreachable. The engine fails closed rather than skipping the check.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
	// ErrInternal is an opaque failure for unexpected persistence or
	// signing errors. Detail goes to the log, not the caller.
	ErrInternal = errors.New("internal error")
)
