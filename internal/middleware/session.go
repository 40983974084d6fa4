package middleware

import (
	"context"
	"net/http"

	"github.com/zzzxajak-prog/FitnessApp/internal/service"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "session", s), ANY package that knows the string
// "session" can read or shadow your value. A package-private type prevents
// collisions: only THIS package can create a key of type contextKey.
type contextKey string

const sessionKey contextKey = "session"

// SessionSource is the part of service.Controller the middleware needs.
type SessionSource interface {
	Current() (*service.Session, error)
}

// RequireSession enforces a logged-in user on the routes it wraps.
//
// There are no tokens or cookies: the app has exactly one active session,
// owned by the service.Controller, and whoever can reach the (loopback-only)
// API acts as that user. The middleware fetches the session once and stores
// it in the request context so a concurrent login cannot swap it out
// halfway through a handler.
//
// If nobody is logged in it returns 401 Unauthorized and stops the chain.
func RequireSession(src SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := src.Current()
			if err != nil {
				// Not http.Error: it would force Content-Type to text/plain.
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"auth_failed","message":"not logged in"}` + "\n"))
				return
			}

			ctx := WithSession(r.Context(), s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *service.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext retrieves the session stored by RequireSession.
//
// Returns (nil, false) when the route is not wrapped by RequireSession.
func SessionFromContext(ctx context.Context) (*service.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*service.Session)
	return s, ok && s != nil
}
