// Package session provides the identity attached to every handled error:
// the current user id and a session id generated once and kept for the
// session's lifetime.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Provider answers who is acting and in which session.
type Provider interface {
	UserID(ctx context.Context) string
	SessionID(ctx context.Context) string
}

// Identity is a request scoped user/session pair.
type Identity struct {
	UserID    string
	SessionID string
}

type identityKey struct{}

// WithIdentity returns ctx carrying id. Providers prefer non-empty fields of
// a request identity over their own state.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the request identity stored in ctx.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Memory is a Provider that keeps its state in process memory only.
type Memory struct {
	mu        sync.RWMutex
	userID    string
	sessionID string
}

// NewMemory creates a Memory provider with a fresh session id.
func NewMemory() *Memory {
	return &Memory{sessionID: uuid.NewString()}
}

// UserID implements Provider.
func (m *Memory) UserID(ctx context.Context) string {
	if id, ok := FromContext(ctx); ok && id.UserID != "" {
		return id.UserID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userID
}

// SessionID implements Provider.
func (m *Memory) SessionID(ctx context.Context) string {
	if id, ok := FromContext(ctx); ok && id.SessionID != "" {
		return id.SessionID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// SetUserID records the logged in user.
func (m *Memory) SetUserID(_ context.Context, userID string) error {
	m.mu.Lock()
	m.userID = userID
	m.mu.Unlock()
	return nil
}

// Clear forgets the user and starts a new session.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.userID = ""
	m.sessionID = uuid.NewString()
	m.mu.Unlock()
	return nil
}
