package session

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"memorylens/internal/pkg/jwt"
)

// CookieName is the session cookie set by the identity service.
const CookieName = "__session"

// JWTProvider verifies HS256 session tokens signed with a shared secret. Until
// a secret is installed every request resolves to Loading.
type JWTProvider struct {
	mu  sync.RWMutex
	svc *jwt.Service
}

func NewJWTProvider(secret string) *JWTProvider {
	p := &JWTProvider{}
	if secret != "" {
		p.SetSecret(secret)
	}
	return p
}

// SetSecret installs or rotates the verification key.
func (p *JWTProvider) SetSecret(secret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.svc = jwt.New(secret, 0)
}

func (p *JWTProvider) Resolve(r *http.Request) Session {
	p.mu.RLock()
	svc := p.svc
	p.mu.RUnlock()
	if svc == nil {
		return Session{State: Loading}
	}

	raw := requestToken(r)
	if raw == "" {
		return Session{State: SignedOut}
	}
	claims, err := svc.ValidateToken(raw)
	if err != nil {
		return Session{State: SignedOut}
	}
	return Session{State: SignedIn, Subject: claims.Subject, Name: claims.Name, Token: raw}
}

func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	// Browsers cannot set headers on websocket upgrades.
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Minted signs a fresh token for subject on every call. Used by the batch
// uploader when it holds the shared secret instead of a user token.
type Minted struct {
	svc     *jwt.Service
	subject string
}

func NewMinted(secret, subject string, ttl time.Duration) *Minted {
	return &Minted{svc: jwt.New(secret, ttl), subject: subject}
}

func (m *Minted) Token(context.Context) (string, error) {
	if m.subject == "" {
		return "", ErrNoSession
	}
	return m.svc.GenerateToken(m.subject, "")
}
