package middleware

import (
	"context"
	"net/http"
	"time"

	"backdrop/internal/domain"
)

// SessionCookieName is the client-held credential.
const SessionCookieName = "session"

// SessionResolver resolves a session token to an authenticated identity.
// A nil result means not authenticated; resolution never errors outward.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) *domain.AuthContext
}

type authKey struct{}

// SessionAuth resolves the session cookie and stores the identity in the
// request context. A stale or unknown token clears the cookie so the
// client drops the dead credential. Handlers decide whether the route
// requires authentication.
func SessionAuth(resolver SessionResolver, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			ac := resolver.Resolve(r.Context(), token)
			if ac == nil {
				ClearSessionCookie(w, secure)
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), authKey{}, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthFromContext returns the authenticated identity, or nil.
func AuthFromContext(ctx context.Context) *domain.AuthContext {
	if ac, ok := ctx.Value(authKey{}).(*domain.AuthContext); ok {
		return ac
	}
	return nil
}

// ContextWithAuth injects an identity, used by handler tests.
func ContextWithAuth(ctx context.Context, ac *domain.AuthContext) context.Context {
	if ac == nil {
		return ctx
	}
	return context.WithValue(ctx, authKey{}, ac)
}

// SetSessionCookie writes the session credential. HttpOnly and SameSite
// Lax always; Secure in production.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie instructs the client to drop the credential.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
