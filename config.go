package credkit

import (
	"errors"
	"time"
)

// Config carries all engine tuning. Zero values are not usable; start
// from [DefaultConfig] and override.
type Config struct {
	JWT       JWTConfig
	Password  PasswordConfig
	Lockout   LockoutConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
	Database  DatabaseConfig
}

// JWTConfig configures the two token classes. RefreshSecret falls back to
// AccessSecret when empty; the token class claim still keeps the classes
// from being interchangeable.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// PasswordConfig holds argon2id parameters.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// LockoutConfig controls the failed-attempt lockout policy. Disabled
// means no attempt tracking at all.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

// ScopeConfig is one fixed-window rate-limit policy.
type ScopeConfig struct {
	Limit  int64
	Window time.Duration
}

// RateLimitConfig selects and tunes request throttling. Store, RedisURL
// and Database.URL are consumed by the construction site (see
// examples/http-minimal); the engine itself receives a built
// ratelimit.Store and never reads them.
type RateLimitConfig struct {
	Enabled   bool
	KeyPrefix string
	Store     string // "memory", "postgres" or "redis"
	RedisURL  string
	Login     ScopeConfig
	Refresh   ScopeConfig
}

// MetricsConfig controls the in-process metrics block.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DatabaseConfig points at the shared Postgres used by credstore.Postgres
// and ratelimit.PostgresStore.
type DatabaseConfig struct {
	URL string
}

// DefaultConfig returns the baseline configuration: 15m access / 7d
// refresh tokens, lockout after 5 failures for 15m, login throttled at
// 5 per 15m per address+identifier, refresh at 30 per 15m per address.
// Secrets are intentionally absent; Validate rejects the config until
// they are set.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Lockout: LockoutConfig{
			Enabled:   true,
			Threshold: 5,
			Duration:  15 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:   true,
			KeyPrefix: "rl",
			Store:     "memory",
			Login:     ScopeConfig{Limit: 5, Window: 15 * time.Minute},
			Refresh:   ScopeConfig{Limit: 30, Window: 15 * time.Minute},
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first configuration problem found. Signing-key
// misconfiguration is fatal here, at startup, never per call.
func (c *Config) Validate() error {
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("JWT.AccessSecret is required")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT.AccessTTL must be positive")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT.RefreshTTL must be positive")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT.Leeway must not be negative")
	}
	if c.Lockout.Enabled {
		if c.Lockout.Threshold < 1 {
			return errors.New("Lockout.Threshold must be >= 1 when enabled")
		}
		if c.Lockout.Duration <= 0 {
			return errors.New("Lockout.Duration must be positive when enabled")
		}
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.KeyPrefix == "" {
			return errors.New("RateLimit.KeyPrefix is required when enabled")
		}
		for _, sc := range []struct {
			name string
			cfg  ScopeConfig
		}{
			{"Login", c.RateLimit.Login},
			{"Refresh", c.RateLimit.Refresh},
		} {
			if sc.cfg.Limit < 1 {
				return errors.New("RateLimit." + sc.name + ".Limit must be >= 1")
			}
			if sc.cfg.Window <= 0 {
				return errors.New("RateLimit." + sc.name + ".Window must be positive")
			}
		}
	}
	return nil
}
