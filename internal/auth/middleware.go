package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/vadim/neo-chat/internal/httpx/response"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	usernameKey
)

// Middleware authenticates requests via a Bearer token and injects the
// caller's identity into the request context. There is no ambient
// current-user state anywhere else.
func Middleware(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" || !strings.HasPrefix(h, "Bearer ") {
				response.Unauthorized(w, "missing token")
				return
			}

			userID, username, err := tm.Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				response.Unauthorized(w, "invalid token")
				return
			}

			ctx := WithIdentity(r.Context(), userID, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity returns a context carrying the caller's identity.
func WithIdentity(ctx context.Context, userID, username string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, usernameKey, username)
}

// UserID returns the authenticated caller's user id, if any.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Username returns the authenticated caller's username, if any.
func Username(ctx context.Context) string {
	name, _ := ctx.Value(usernameKey).(string)
	return name
}
