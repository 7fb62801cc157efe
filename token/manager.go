package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the uniform verification failure. Expiry, signature
// mismatch, malformed input, and class confusion all map here so a caller
// cannot probe which check rejected the token.
var ErrInvalidToken = errors.New("invalid token")

const (
	classAccess  = "access"
	classRefresh = "refresh"
)

// Config configures a [Manager]. RefreshSecret defaults to AccessSecret;
// the class claim keeps the two token kinds non-interchangeable even
// then. Now is injectable for tests and defaults to time.Now.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
	Now           func() time.Time
}

// Manager signs and verifies HS256 tokens of both classes. It is
// immutable after construction and safe for concurrent use.
type Manager struct {
	config Config
}

type claims struct {
	Class string `json:"cls"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and builds a Manager. Misconfiguration fails
// here, at startup, never on a per-call basis.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.RefreshSecret) == 0 {
		cfg.RefreshSecret = cfg.AccessSecret
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{config: cfg}, nil
}

// IssueAccess signs a short-lived access token for subject.
func (m *Manager) IssueAccess(subject string) (string, error) {
	return m.issue(subject, classAccess, m.config.AccessSecret, m.config.AccessTTL)
}

// IssueRefresh signs a long-lived refresh token for subject.
func (m *Manager) IssueRefresh(subject string) (string, error) {
	return m.issue(subject, classRefresh, m.config.RefreshSecret, m.config.RefreshTTL)
}

// ParseAccess verifies an access token and returns its subject.
func (m *Manager) ParseAccess(tokenStr string) (string, error) {
	return m.parse(tokenStr, classAccess, m.config.AccessSecret)
}

// ParseRefresh verifies a refresh token and returns its subject.
func (m *Manager) ParseRefresh(tokenStr string) (string, error) {
	return m.parse(tokenStr, classRefresh, m.config.RefreshSecret)
}

// HashForStorage returns the deterministic one-way digest under which a
// refresh token is persisted and later compared: sha256, hex encoded.
func (m *Manager) HashForStorage(tokenStr string) string {
	sum := sha256.Sum256([]byte(tokenStr))
	return hex.EncodeToString(sum[:])
}

func (m *Manager) issue(subject, class string, secret []byte, ttl time.Duration) (string, error) {
	now := m.config.Now()
	c := claims{
		Class: class,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    m.config.Issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}

func (m *Manager) parse(tokenStr, class string, secret []byte) (string, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Class != class || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}
