package credkit

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ConfigFromEnv builds a Config from environment variables, loading a
// .env file first when one exists. Unset variables keep the
// DefaultConfig values; JWT_SECRET has no default and is required by
// Validate.
//
// Recognized variables:
//
//	JWT_SECRET, JWT_REFRESH_SECRET, JWT_ISSUER
//	ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL          (e.g. "15m", "7d")
//	LOCKOUT_ENABLED, LOCKOUT_THRESHOLD, LOCKOUT_DURATION
//	RATE_LIMIT_ENABLED, RATE_LIMIT_KEY_PREFIX, RATE_LIMIT_STORE
//	RATE_LIMIT_REDIS_URL (or REDIS_URL)
//	RATE_LIMIT_LOGIN_MAX, RATE_LIMIT_LOGIN_WINDOW
//	RATE_LIMIT_REFRESH_MAX, RATE_LIMIT_REFRESH_WINDOW
//	METRICS_ENABLED, DATABASE_URL
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.AccessSecret = []byte(v)
	}
	if v := os.Getenv("JWT_REFRESH_SECRET"); v != "" {
		cfg.JWT.RefreshSecret = []byte(v)
	}
	cfg.JWT.Issuer = os.Getenv("JWT_ISSUER")
	cfg.JWT.AccessTTL = parseDuration(os.Getenv("ACCESS_TOKEN_TTL"), cfg.JWT.AccessTTL)
	cfg.JWT.RefreshTTL = parseDuration(os.Getenv("REFRESH_TOKEN_TTL"), cfg.JWT.RefreshTTL)

	cfg.Lockout.Enabled = parseBool(os.Getenv("LOCKOUT_ENABLED"), cfg.Lockout.Enabled)
	cfg.Lockout.Threshold = parsePositiveInt(os.Getenv("LOCKOUT_THRESHOLD"), cfg.Lockout.Threshold)
	cfg.Lockout.Duration = parseDuration(os.Getenv("LOCKOUT_DURATION"), cfg.Lockout.Duration)

	cfg.RateLimit.Enabled = parseBool(os.Getenv("RATE_LIMIT_ENABLED"), cfg.RateLimit.Enabled)
	if v := os.Getenv("RATE_LIMIT_KEY_PREFIX"); v != "" {
		cfg.RateLimit.KeyPrefix = v
	}
	if v := os.Getenv("RATE_LIMIT_STORE"); v != "" {
		cfg.RateLimit.Store = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("RATE_LIMIT_REDIS_URL"); v != "" {
		cfg.RateLimit.RedisURL = v
	} else {
		cfg.RateLimit.RedisURL = os.Getenv("REDIS_URL")
	}
	cfg.RateLimit.Login.Limit = int64(parsePositiveInt(os.Getenv("RATE_LIMIT_LOGIN_MAX"), int(cfg.RateLimit.Login.Limit)))
	cfg.RateLimit.Login.Window = parseDuration(os.Getenv("RATE_LIMIT_LOGIN_WINDOW"), cfg.RateLimit.Login.Window)
	cfg.RateLimit.Refresh.Limit = int64(parsePositiveInt(os.Getenv("RATE_LIMIT_REFRESH_MAX"), int(cfg.RateLimit.Refresh.Limit)))
	cfg.RateLimit.Refresh.Window = parseDuration(os.Getenv("RATE_LIMIT_REFRESH_WINDOW"), cfg.RateLimit.Refresh.Window)

	cfg.Metrics.Enabled = parseBool(os.Getenv("METRICS_ENABLED"), cfg.Metrics.Enabled)
	cfg.Database.URL = os.Getenv("DATABASE_URL")

	return cfg
}

func parseBool(value string, fallback bool) bool {
	if value == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parsePositiveInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

var durationPattern = regexp.MustCompile(`(?i)^(\d+)(ms|s|m|h|d)$`)

// parseDuration accepts the short forms the service has always used in
// its environment ("500ms", "15m", "7d"). Anything else keeps fallback.
func parseDuration(value string, fallback time.Duration) time.Duration {
	match := durationPattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return fallback
	}
	amount, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return fallback
	}
	var unit time.Duration
	switch strings.ToLower(match[2]) {
	case "ms":
		unit = time.Millisecond
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	return time.Duration(amount) * unit
}
