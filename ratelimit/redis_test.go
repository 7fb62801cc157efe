package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisIncrementCounts(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		res, err := store.Increment(ctx, "rl:login:10.0.0.1", time.Minute)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if res.Count != want {
			t.Fatalf("count = %d, want %d", res.Count, want)
		}
		if res.ResetAt.IsZero() {
			t.Fatal("resetAt not populated")
		}
	}
}

func TestRedisWindowExpiryResets(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	if _, err := store.Increment(ctx, "k", time.Minute); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if _, err := store.Increment(ctx, "k", time.Minute); err != nil {
		t.Fatalf("increment: %v", err)
	}

	mr.FastForward(time.Minute + time.Second)

	res, err := store.Increment(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("count after expiry = %d, want 1", res.Count)
	}
}

func TestRedisConcurrentIncrementsExact(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := store.Increment(ctx, "shared", time.Minute); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	res, err := store.Increment(ctx, "shared", time.Minute)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if res.Count != workers+1 {
		t.Fatalf("count = %d, want %d", res.Count, workers+1)
	}
}

func TestRedisUnavailableFailsClosed(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)
	mr.Close()

	_, err = store.Increment(context.Background(), "k", time.Minute)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	_ = client.Close()
}
