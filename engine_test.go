package credkit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	credkit "github.com/kynelabs/credkit"
	"github.com/kynelabs/credkit/credstore"
	"github.com/kynelabs/credkit/ratelimit"
)

var (
	testStart  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testCaller = ratelimit.Caller{Addr: "203.0.113.7"}
)

// testClock is a mutable clock shared by the engine and both stores.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testStart}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fastHasher keeps engine tests off argon2id's real cost parameters and
// counts Verify calls so tests can assert the verifier was skipped.
type fastHasher struct {
	mu          sync.Mutex
	verifyCalls int
}

func (h *fastHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (h *fastHasher) Verify(password, encodedHash string) (bool, error) {
	h.mu.Lock()
	h.verifyCalls++
	h.mu.Unlock()
	return encodedHash == "hashed:"+password, nil
}

func (h *fastHasher) VerifyCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.verifyCalls
}

// unavailableStore simulates a dead rate limit backend.
type unavailableStore struct{}

func (unavailableStore) Increment(context.Context, string, time.Duration) (ratelimit.Result, error) {
	return ratelimit.Result{}, ratelimit.ErrStoreUnavailable
}

func testEngineConfig() credkit.Config {
	cfg := credkit.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("test-access-secret-test-access")
	cfg.JWT.RefreshSecret = []byte("test-refresh-secret-test-refresh")
	return cfg
}

type engineFixture struct {
	engine *credkit.Engine
	store  *credstore.Memory
	hasher *fastHasher
	clock  *testClock
}

func newEngineFixture(t *testing.T, mutate func(*credkit.Config)) *engineFixture {
	t.Helper()

	cfg := testEngineConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	clock := newTestClock()
	store := credstore.NewMemory()
	hasher := &fastHasher{}

	engine, err := credkit.New().
		WithConfig(cfg).
		WithCredentialStore(store).
		WithRateLimitStore(ratelimit.NewMemoryStore(ratelimit.WithMemoryClock(clock.Now))).
		WithPasswordHasher(hasher).
		WithClock(clock.Now).
		Build()
	require.NoError(t, err)

	return &engineFixture{engine: engine, store: store, hasher: hasher, clock: clock}
}

func (f *engineFixture) register(t *testing.T, identifier, password string) credkit.UserRecord {
	t.Helper()
	user, err := f.engine.Register(context.Background(), identifier, password)
	require.NoError(t, err)
	return user
}

func (f *engineFixture) login(t *testing.T, identifier, password string) credkit.TokenPair {
	t.Helper()
	pair, _, err := f.engine.Login(context.Background(), testCaller, identifier, password)
	require.NoError(t, err)
	return pair
}

func TestBuildRequiresCredentialStore(t *testing.T) {
	_, err := credkit.New().
		WithConfig(testEngineConfig()).
		WithRateLimitStore(ratelimit.NewMemoryStore()).
		Build()
	require.Error(t, err)
}

func TestBuildRequiresRateStoreWhenEnabled(t *testing.T) {
	_, err := credkit.New().
		WithConfig(testEngineConfig()).
		WithCredentialStore(credstore.NewMemory()).
		Build()
	require.Error(t, err)
}

func TestBuildRejectsMissingSecret(t *testing.T) {
	cfg := testEngineConfig()
	cfg.JWT.AccessSecret = nil
	_, err := credkit.New().
		WithConfig(cfg).
		WithCredentialStore(credstore.NewMemory()).
		WithRateLimitStore(ratelimit.NewMemoryStore()).
		Build()
	require.Error(t, err)
}

func TestBuilderSingleUse(t *testing.T) {
	b := credkit.New().
		WithConfig(testEngineConfig()).
		WithCredentialStore(credstore.NewMemory()).
		WithRateLimitStore(ratelimit.NewMemoryStore())

	_, err := b.Build()
	require.NoError(t, err)
	_, err = b.Build()
	require.Error(t, err)
}
