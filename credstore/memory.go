package credstore

import (
	"context"
	"sync"
	"time"

	"github.com/kynelabs/credkit"
)

// Memory is a mutex-guarded in-process credential store. It mirrors the
// Postgres semantics, including the CAS rotation, and backs the engine's
// tests and single-process deployments.
type Memory struct {
	mu           sync.Mutex
	byID         map[string]credkit.UserRecord
	byIdentifier map[string]string
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		byID:         make(map[string]credkit.UserRecord),
		byIdentifier: make(map[string]string),
	}
}

// GetByIdentifier implements credkit.CredentialStore.
func (s *Memory) GetByIdentifier(_ context.Context, identifier string) (credkit.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byIdentifier[identifier]
	if !ok {
		return credkit.UserRecord{}, credkit.ErrUserNotFound
	}
	return s.byID[id], nil
}

// GetByID implements credkit.CredentialStore.
func (s *Memory) GetByID(_ context.Context, id string) (credkit.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return credkit.UserRecord{}, credkit.ErrUserNotFound
	}
	return rec, nil
}

// Create implements credkit.CredentialStore.
func (s *Memory) Create(_ context.Context, rec credkit.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byIdentifier[rec.Identifier]; exists {
		return credkit.ErrDuplicateIdentifier
	}
	s.byID[rec.ID] = rec
	s.byIdentifier[rec.Identifier] = rec.ID
	return nil
}

// SaveAuthState implements credkit.CredentialStore.
func (s *Memory) SaveAuthState(_ context.Context, rec credkit.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[rec.ID]
	if !ok {
		return credkit.ErrUserNotFound
	}
	stored.RefreshTokenHash = rec.RefreshTokenHash
	stored.FailedAttempts = rec.FailedAttempts
	stored.LockUntil = rec.LockUntil
	stored.UpdatedAt = time.Now().UTC()
	s.byID[rec.ID] = stored
	return nil
}

// RotateRefreshHash implements credkit.CredentialStore. The compare and
// overwrite happen under one lock, so concurrent rotations of the same
// prior hash produce exactly one winner.
func (s *Memory) RotateRefreshHash(_ context.Context, id, expectedHash, newHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	if stored.RefreshTokenHash == "" || stored.RefreshTokenHash != expectedHash {
		return false, nil
	}
	stored.RefreshTokenHash = newHash
	stored.UpdatedAt = time.Now().UTC()
	s.byID[id] = stored
	return true, nil
}
