package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kynelabs/credkit"
)

const pgUniqueViolation = "23505"

// Querier is the slice of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	userSchema = `
CREATE TABLE IF NOT EXISTS users (
	id                 UUID PRIMARY KEY,
	identifier         TEXT NOT NULL UNIQUE,
	password_hash      TEXT NOT NULL,
	refresh_token_hash TEXT NOT NULL DEFAULT '',
	failed_attempts    INT NOT NULL DEFAULT 0,
	lock_until         TIMESTAMPTZ,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
)`

	selectUserColumns = `id, identifier, password_hash, refresh_token_hash, failed_attempts, lock_until, created_at, updated_at`
)

// Postgres is a pgx-backed credential store.
type Postgres struct {
	db Querier
}

// NewPostgres wraps db (typically a *pgxpool.Pool).
func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the users table when missing.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, userSchema); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// GetByIdentifier implements credkit.CredentialStore.
func (s *Postgres) GetByIdentifier(ctx context.Context, identifier string) (credkit.UserRecord, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+selectUserColumns+` FROM users WHERE identifier = $1`, identifier)
	return scanUser(row)
}

// GetByID implements credkit.CredentialStore.
func (s *Postgres) GetByID(ctx context.Context, id string) (credkit.UserRecord, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+selectUserColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// Create implements credkit.CredentialStore. A unique violation on the
// identifier maps to credkit.ErrDuplicateIdentifier.
func (s *Postgres) Create(ctx context.Context, rec credkit.UserRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, identifier, password_hash, refresh_token_hash, failed_attempts, lock_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Identifier, rec.PasswordHash, rec.RefreshTokenHash,
		rec.FailedAttempts, nullableTime(rec.LockUntil), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return credkit.ErrDuplicateIdentifier
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// SaveAuthState implements credkit.CredentialStore.
func (s *Postgres) SaveAuthState(ctx context.Context, rec credkit.UserRecord) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET refresh_token_hash = $2, failed_attempts = $3, lock_until = $4, updated_at = $5
		WHERE id = $1`,
		rec.ID, rec.RefreshTokenHash, rec.FailedAttempts,
		nullableTime(rec.LockUntil), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save auth state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return credkit.ErrUserNotFound
	}
	return nil
}

// RotateRefreshHash implements credkit.CredentialStore. The compare and
// the overwrite are one conditional UPDATE, so two concurrent rotations
// presenting the same prior hash serialize in the database and exactly
// one observes a swap.
func (s *Postgres) RotateRefreshHash(ctx context.Context, id, expectedHash, newHash string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET refresh_token_hash = $3, updated_at = $4
		WHERE id = $1 AND refresh_token_hash = $2 AND refresh_token_hash <> ''`,
		id, expectedHash, newHash, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("rotate refresh hash: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanUser(row pgx.Row) (credkit.UserRecord, error) {
	var (
		rec       credkit.UserRecord
		lockUntil *time.Time
	)
	err := row.Scan(
		&rec.ID, &rec.Identifier, &rec.PasswordHash, &rec.RefreshTokenHash,
		&rec.FailedAttempts, &lockUntil, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return credkit.UserRecord{}, credkit.ErrUserNotFound
		}
		return credkit.UserRecord{}, fmt.Errorf("scan user: %w", err)
	}
	if lockUntil != nil {
		rec.LockUntil = *lockUntil
	}
	return rec, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
