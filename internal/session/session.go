// Package session resolves who is signed in and supplies bearer tokens for
// backend calls. Sign-in itself belongs to the external identity service.
package session

import (
	"context"
	"errors"
	"net/http"
)

var ErrNoSession = errors.New("no active session")

type State int

const (
	// Loading means the provider cannot decide yet.
	Loading State = iota
	SignedOut
	SignedIn
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case SignedOut:
		return "signed_out"
	case SignedIn:
		return "signed_in"
	}
	return "unknown"
}

// Session is the resolved identity for a request.
type Session struct {
	State   State
	Subject string
	Name    string
	Token   string
}

func (s Session) SignedIn() bool { return s.State == SignedIn && s.Subject != "" }

// Provider resolves the session attached to an incoming request.
type Provider interface {
	Resolve(r *http.Request) Session
}

// TokenSource yields the bearer token for an outgoing backend call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// ContextTokens serves the token of the session stored on the context.
type ContextTokens struct{}

func (ContextTokens) Token(ctx context.Context) (string, error) {
	s, ok := FromContext(ctx)
	if !ok || !s.SignedIn() || s.Token == "" {
		return "", ErrNoSession
	}
	return s.Token, nil
}

// StaticToken always returns the same token; empty means anonymous.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrNoSession
	}
	return string(t), nil
}
