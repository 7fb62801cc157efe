//go:build integration
// +build integration

package ratelimit

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func newPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("postgres connect: %v", err)
	}
	t.Cleanup(pool.Close)

	store := NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return store
}

func uniqueKey(t *testing.T) string {
	return fmt.Sprintf("test:%s:%d", t.Name(), time.Now().UnixNano())
}

func TestPostgresIncrementCounts(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	key := uniqueKey(t)

	for want := int64(1); want <= 3; want++ {
		res, err := store.Increment(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if res.Count != want {
			t.Fatalf("count = %d, want %d", res.Count, want)
		}
	}
}

func TestPostgresWindowExpiryResets(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	key := uniqueKey(t)

	if _, err := store.Increment(ctx, key, 500*time.Millisecond); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if _, err := store.Increment(ctx, key, 500*time.Millisecond); err != nil {
		t.Fatalf("increment: %v", err)
	}

	time.Sleep(600 * time.Millisecond)

	res, err := store.Increment(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("count after expiry = %d, want 1", res.Count)
	}
}

func TestPostgresConcurrentIncrementsExact(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	key := uniqueKey(t)

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := store.Increment(ctx, key, time.Minute); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	res, err := store.Increment(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if res.Count != workers+1 {
		t.Fatalf("count = %d, want %d", res.Count, workers+1)
	}
}

func TestPostgresPruneExpired(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	key := uniqueKey(t)

	if _, err := store.Increment(ctx, key, time.Millisecond); err != nil {
		t.Fatalf("increment: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	pruned, err := store.PruneExpired(ctx)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned < 1 {
		t.Fatalf("pruned = %d, want >= 1", pruned)
	}
}
