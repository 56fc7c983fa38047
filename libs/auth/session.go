package auth

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Session is the authenticated host for a request. Handlers receive it explicitly
// from the request context instead of reading ambient globals.
type Session struct {
	UserID string
	Email  string
}

type ctxKey int

const ctxKeySession ctxKey = iota

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKeySession).(Session)
	return s, ok && s.UserID != ""
}

// RequireSession rejects requests without a valid HS256 bearer token.
func RequireSession(secret string, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := ParseAndVerifyHS256(strings.TrimSpace(token), secret, now())
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := WithSession(r.Context(), Session{UserID: claims.Sub, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
