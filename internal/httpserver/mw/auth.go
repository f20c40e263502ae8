package mw

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/auth"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserID returns the owner authenticated by Auth, or "".
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// WithUserID stores an owner in ctx. Used by Auth and by handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Auth verifies the bearer token and requires the user_id query parameter
// to name the token's subject. A missing or invalid token is 401, a
// mismatched or missing user_id is 403.
func Auth(secret []byte, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				deny(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			subject, err := auth.Verify(secret, token)
			if err != nil {
				log.Debug("Auth: token rejected", logger.Error(err))
				deny(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			if owner := r.URL.Query().Get("user_id"); owner != subject {
				log.Warn("Auth: owner filter does not match token",
					logger.String("subject", subject),
					logger.String("user_id", owner),
					logger.String("path", r.URL.Path))
				deny(w, http.StatusForbidden, "forbidden", "user_id must match the authenticated user")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), subject)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func deny(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
