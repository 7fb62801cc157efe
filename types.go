package credkit

import (
	"context"
	"time"
)

// UserRecord is the credential record this core reads and writes. The
// backing store may carry more columns; these are the fields the engine
// touches on login, refresh, logout, and failed-attempt tracking.
//
// Invariant: at most one refresh token is valid per record at any time.
// RefreshTokenHash holds the sha256 hex digest of the currently valid
// refresh token, or "" when no session is active.
type UserRecord struct {
	ID               string
	Identifier       string
	PasswordHash     string
	RefreshTokenHash string
	FailedAttempts   int
	LockUntil        time.Time // zero = not locked
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CredentialStore is the accessor callers implement to integrate credkit
// with their user database. credstore ships a Postgres implementation and
// an in-memory one for tests and single-process deployments.
type CredentialStore interface {
	// GetByIdentifier looks a record up by its unique identifier.
	// Returns ErrUserNotFound on a miss.
	GetByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	// GetByID looks a record up by record id. Returns ErrUserNotFound on
	// a miss.
	GetByID(ctx context.Context, id string) (UserRecord, error)
	// Create inserts a new record. Returns ErrDuplicateIdentifier when
	// the identifier is already taken.
	Create(ctx context.Context, rec UserRecord) error
	// SaveAuthState persists the mutable authentication fields
	// (FailedAttempts, LockUntil, RefreshTokenHash) of rec.
	SaveAuthState(ctx context.Context, rec UserRecord) error
	// RotateRefreshHash atomically replaces the stored refresh hash with
	// newHash, but only if the stored value still equals expectedHash.
	// Returns false when the compare fails (the token was already rotated
	// away or the session was cleared). Two concurrent rotations of the
	// same token must produce exactly one true.
	RotateRefreshHash(ctx context.Context, id, expectedHash, newHash string) (bool, error)
}

// PasswordHasher hashes and verifies passwords. password.Argon2 is the
// default implementation.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// TokenPair is the access+refresh credential pair issued by Login and
// Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
