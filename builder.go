package credkit

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/kynelabs/credkit/lockout"
	"github.com/kynelabs/credkit/password"
	"github.com/kynelabs/credkit/ratelimit"
	"github.com/kynelabs/credkit/token"
)

// Builder assembles an [Engine]. Construction is the only place the
// engine's collaborators are chosen; after Build the engine is immutable.
type Builder struct {
	config      Config
	credentials CredentialStore
	rateStore   ratelimit.Store
	hasher      PasswordHasher
	logger      *zerolog.Logger
	now         func() time.Time

	built bool
}

// New starts a Builder with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		now:    time.Now,
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentialStore sets the credential record accessor. Required.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithRateLimitStore sets the counter backend. Required when rate
// limiting is enabled; the engine holds only the Store contract and is
// indifferent to which variant backs it.
func (b *Builder) WithRateLimitStore(store ratelimit.Store) *Builder {
	b.rateStore = store
	return b
}

// WithPasswordHasher overrides the default argon2id hasher.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithClock overrides the engine clock (tests).
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the metrics block.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder is
// single-use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}
	if cfg.RateLimit.Enabled && b.rateStore == nil {
		return nil, errors.New("rate limiting enabled but no counter store provided")
	}

	tokens, err := token.NewManager(token.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		Now:           b.now,
	})
	if err != nil {
		return nil, err
	}

	hasher := b.hasher
	if hasher == nil {
		hasher, err = password.NewArgon2(password.Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, err
		}
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	engine := &Engine{
		config:      cfg,
		credentials: b.credentials,
		tokens:      tokens,
		hasher:      hasher,
		lockout: lockout.Policy{
			Enabled:   cfg.Lockout.Enabled,
			Threshold: cfg.Lockout.Threshold,
			Duration:  cfg.Lockout.Duration,
		},
		metrics: NewMetrics(cfg.Metrics),
		log:     logger,
		now:     b.now,
	}

	if cfg.RateLimit.Enabled {
		engine.loginLimiter = ratelimit.New(b.rateStore, ratelimit.Policy{
			Scope:     "login",
			Limit:     cfg.RateLimit.Login.Limit,
			Window:    cfg.RateLimit.Login.Window,
			KeyPrefix: cfg.RateLimit.KeyPrefix,
		}, ratelimit.WithKeyFunc(ratelimit.AddressIdentifierKey), ratelimit.WithClock(b.now))

		engine.refreshLimiter = ratelimit.New(b.rateStore, ratelimit.Policy{
			Scope:     "refresh",
			Limit:     cfg.RateLimit.Refresh.Limit,
			Window:    cfg.RateLimit.Refresh.Window,
			KeyPrefix: cfg.RateLimit.KeyPrefix,
		}, ratelimit.WithClock(b.now))
	}

	b.built = true
	return engine, nil
}
