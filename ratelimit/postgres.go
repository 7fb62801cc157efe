package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the slice of pgxpool.Pool the store needs; narrowed so tests
// can substitute a fake.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	counterSchema = `
CREATE TABLE IF NOT EXISTS rate_limit_counters (
	key        TEXT PRIMARY KEY,
	count      BIGINT NOT NULL DEFAULT 0,
	expires_at TIMESTAMPTZ NOT NULL
)`

	// Counts a hit only while the recorded window is still live.
	incrementLiveSQL = `
UPDATE rate_limit_counters
SET count = count + 1
WHERE key = $1 AND expires_at > $2
RETURNING count, expires_at`

	// Starts a fresh window for a new or expired key. The WHERE guard
	// makes a concurrent live window win the conflict, in which case no
	// row returns.
	resetUpsertSQL = `
INSERT INTO rate_limit_counters (key, count, expires_at)
VALUES ($1, 1, $2)
ON CONFLICT (key) DO UPDATE
SET count = 1, expires_at = EXCLUDED.expires_at
WHERE rate_limit_counters.expires_at <= $3
RETURNING count, expires_at`

	pruneExpiredSQL = `DELETE FROM rate_limit_counters WHERE expires_at <= $1`
)

// PostgresStore is a counter store backed by a shared database, for
// deployments running several service instances against one Postgres.
// Atomicity is pushed to the database via conditional updates; no
// in-process locks are held.
type PostgresStore struct {
	db  Querier
	now Clock
}

// PostgresOption tunes a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresClock overrides the store clock (tests).
func WithPostgresClock(now Clock) PostgresOption {
	return func(s *PostgresStore) { s.now = now }
}

// NewPostgresStore wraps db (typically a *pgxpool.Pool).
func NewPostgresStore(db Querier, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the counter table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, counterSchema); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Increment implements [Store] with an optimistic three-step protocol:
//
//  1. conditionally increment the counter while its window is live;
//  2. if nothing matched (new key or expired window), reset-upsert a
//     fresh window with count 1;
//  3. if the upsert lost a race against a concurrent reset, retry the
//     conditional increment exactly once — the loser re-reads and
//     increments the winner's window, so every call is counted once.
//
// The retry is bounded (never recursive); under pathological contention
// the bounded loop is a fairness/tail-latency trade-off, not a
// correctness one. Expired rows are reclaimed by PruneExpired only; no
// correctness depends on reaping.
func (s *PostgresStore) Increment(ctx context.Context, key string, window time.Duration) (Result, error) {
	now := s.now()

	res, found, err := s.scanCounter(s.db.QueryRow(ctx, incrementLiveSQL, key, now))
	if err != nil {
		return Result{}, err
	}
	if found {
		return res, nil
	}

	res, found, err = s.scanCounter(s.db.QueryRow(ctx, resetUpsertSQL, key, now.Add(window), now))
	if err != nil {
		return Result{}, err
	}
	if found {
		return res, nil
	}

	res, found, err = s.scanCounter(s.db.QueryRow(ctx, incrementLiveSQL, key, now))
	if err != nil {
		return Result{}, err
	}
	if !found {
		// Both the upsert and the retry missed: the winner's window
		// expired within the same call. Treated as an outage rather than
		// guessing a count.
		return Result{}, fmt.Errorf("%w: counter reset race not resolved", ErrStoreUnavailable)
	}
	return res, nil
}

// PruneExpired deletes rows whose window has elapsed. Space reclamation
// only; safe to run from a cron or never.
func (s *PostgresStore) PruneExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, pruneExpiredSQL, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) scanCounter(row pgx.Row) (Result, bool, error) {
	var res Result
	err := row.Scan(&res.Count, &res.ResetAt)
	if err == nil {
		return res, true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Result{}, false, nil
	}
	return Result{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
