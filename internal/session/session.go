// Package session keeps the login registry mapping opaque tokens to users.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownToken is returned for tokens that were never issued or were deleted.
var ErrUnknownToken = errors.New("unknown session token")

// Store issues and resolves session tokens. Implementations must be safe
// for concurrent use.
type Store interface {
	Create(ctx context.Context, userID string) (string, error)
	Lookup(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

// MemoryStore is a process-local Store. It starts empty and loses every
// session on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]string)}
}

// Create issues a new random token for userID.
func (s *MemoryStore) Create(_ context.Context, userID string) (string, error) {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = userID
	return token, nil
}

// Lookup resolves token to its user id.
func (s *MemoryStore) Lookup(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.sessions[token]
	if !ok {
		return "", ErrUnknownToken
	}
	return userID, nil
}

// Delete forgets token. Deleting an unknown token is not an error.
func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
