// Package credentials supplies the operator's own bearer token to outgoing
// admin API calls. The token is read at the start of every request and never
// cached by callers, so login and logout take effect on the next call.
package credentials

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrNoCredentials means the operator has not logged in.
var ErrNoCredentials = errors.New("no operator credentials")

// Provider returns the bearer token to present on the next request.
type Provider interface {
	BearerToken(ctx context.Context) (string, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context) (string, error)

func (f ProviderFunc) BearerToken(ctx context.Context) (string, error) { return f(ctx) }

// Static always returns the same token. An empty token yields ErrNoCredentials.
type Static string

func (s Static) BearerToken(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoCredentials
	}
	return string(s), nil
}

// Store is a mutable, concurrency-safe Provider owned by the CLI session.
type Store struct {
	mu    sync.RWMutex
	token string
}

// NewStore returns a Store seeded with token, which may be empty.
func NewStore(token string) *Store {
	return &Store{token: strings.TrimSpace(token)}
}

func (s *Store) BearerToken(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoCredentials
	}
	return s.token, nil
}

// Set replaces the current token.
func (s *Store) Set(token string) {
	s.mu.Lock()
	s.token = strings.TrimSpace(token)
	s.mu.Unlock()
}

// Clear forgets the current token.
func (s *Store) Clear() {
	s.Set("")
}

// Present reports whether a token is loaded.
func (s *Store) Present() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}
