package credkit

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Register creates a credential record for a new identifier. The
// identifier is normalized before storage so later logins match
// regardless of case or surrounding whitespace.
func (e *Engine) Register(ctx context.Context, identifier, plaintext string) (UserRecord, error) {
	identifier = normalizeIdentifier(identifier)
	if identifier == "" || plaintext == "" {
		return UserRecord{}, ErrRegisterInvalid
	}

	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return UserRecord{}, e.fail("register", err)
	}

	now := e.now()
	user := UserRecord{
		ID:           uuid.NewString(),
		Identifier:   identifier,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.credentials.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateIdentifier) {
			e.metrics.Inc(MetricRegisterDuplicate)
			return UserRecord{}, ErrDuplicateIdentifier
		}
		return UserRecord{}, e.fail("register", err)
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}
