package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cloo-solutions/shopple/internal/api"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// TriggerSecretHeader carries the shared secret on trigger webhooks.
const TriggerSecretHeader = "X-Trigger-Secret"

type AuthValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// CallerAuth rejects requests without a valid bearer token.
func CallerAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return callerAuth(validator, true)
}

// OptionalCallerAuth resolves the caller when a token is present. A present
// but invalid token is still rejected.
func OptionalCallerAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return callerAuth(validator, false)
}

func callerAuth(validator AuthValidator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if required {
					api.Error(w, http.StatusUnauthorized, "missing authorization header")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			userID, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = zerolog.Ctx(ctx).With().Str("user_id", userID).Logger().WithContext(ctx)
			if holder := userHolderFrom(ctx); holder != nil {
				holder.userID = userID
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TriggerAuth admits requests carrying the shared trigger secret.
func TriggerAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(TriggerSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				api.Error(w, http.StatusUnauthorized, "invalid trigger secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}
