package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"memorylens/internal/session"
)

const (
	// ContextSubject is the gin context key holding the signed-in subject.
	ContextSubject = "subject"
	contextSession = "session"
)

type Decision int

const (
	ShowLoading Decision = iota
	RenderPage
	RedirectEntry
)

// Decide maps a resolved session onto what a protected route does.
func Decide(s session.Session) Decision {
	switch {
	case s.State == session.Loading:
		return ShowLoading
	case s.SignedIn():
		return RenderPage
	default:
		return RedirectEntry
	}
}

// RouteGuard lets signed-in requests through, answers a loading placeholder
// while the provider is unresolved and redirects everyone else to entry.
func RouteGuard(p session.Provider, entry string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := p.Resolve(c.Request)
		switch Decide(s) {
		case ShowLoading:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SESSION_LOADING",
					"message": "Loading...",
				},
			})
		case RedirectEntry:
			log.Printf("route_guard_redirect path=%s to=%s", c.Request.URL.Path, entry)
			c.Redirect(http.StatusFound, entry)
			c.Abort()
		default:
			attach(c, s)
			c.Next()
		}
	}
}

// Session attaches whatever session resolves without gating the route.
func Session(p session.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		attach(c, p.Resolve(c.Request))
		c.Next()
	}
}

func attach(c *gin.Context, s session.Session) {
	c.Set(contextSession, s)
	if s.SignedIn() {
		c.Set(ContextSubject, s.Subject)
	}
	c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), s))
}

// CurrentSession returns the session attached by RouteGuard or Session.
func CurrentSession(c *gin.Context) session.Session {
	if v, ok := c.Get(contextSession); ok {
		if s, ok := v.(session.Session); ok {
			return s
		}
	}
	return session.Session{State: session.SignedOut}
}
