package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/staybook/backend/internal/session"
)

type contextKey struct{}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the authenticated user id, or "" outside RequireUser.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// SessionToken extracts the token from an "Authorization: Bearer" header,
// falling back to the session cookie.
func SessionToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireUser rejects requests without a valid session and stores the
// session's user id in the request context.
func RequireUser(sessions session.Store, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r, cookieName)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Login required")
				return
			}

			userID, err := sessions.Lookup(r.Context(), token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Session expired or invalid")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
