// Package session defines the contract of the session provider that
// authenticates principals, and the auth-state events it emits.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession is returned by a Client when the request carries no session.
var ErrNoSession = errors.New("session: no session")

// Session is the proof of authentication issued by the identity provider.
type Session struct {
	Token     string
	UID       string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity is the principal derived from a Session.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Identity returns the principal the session was issued to.
func (s *Session) Identity() Identity {
	return Identity{ID: s.UID, Email: s.Email}
}

// Client is the session provider. One instance is created at process start
// and shared read-only by every request.
type Client interface {
	// GetSession verifies the ambient token carried by ctx (see WithToken).
	GetSession(ctx context.Context) (*Session, error)
	// SignOut invalidates every session of uid.
	SignOut(ctx context.Context, uid string) error
}

type tokenKey struct{}

// WithToken stores the raw ID token presented by the caller.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the token stored by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}
