package middleware

import (
	"context"
	"net/http"
	"strings"

	"noteflow/internal/auth"
	"noteflow/internal/collab"
	"noteflow/pkg/logger"
)

type contextKey string

const userKey contextKey = "user"

// UserFrom returns the identity attached by Auth.
func UserFrom(ctx context.Context) (*collab.User, bool) {
	u, ok := ctx.Value(userKey).(*collab.User)
	return u, ok
}

// Auth authenticates the connection handshake. The token travels in the
// query string (the browser WebSocket API cannot set headers) with a
// Bearer-header fallback for curl and tests. The subject is resolved to
// a full identity once, here; handlers never trust client-supplied
// identity fields afterward.
func Auth(verifier *auth.Verifier, users collab.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.URL.Query().Get("token")
			if tokenString == "" {
				authHeader := r.Header.Get("Authorization")
				tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			}

			if tokenString == "" {
				http.Error(w, "no credential provided", http.StatusUnauthorized)
				return
			}

			subject, err := verifier.Verify(tokenString)
			if err != nil {
				logger.Sugar.Infof("Rejected handshake: %v", err)
				http.Error(w, "credential invalid or expired", http.StatusUnauthorized)
				return
			}

			user, err := users.FindUserByID(subject)
			if err != nil {
				if collab.IsNotFound(err) {
					http.Error(w, "subject does not exist", http.StatusUnauthorized)
					return
				}
				logger.Sugar.Errorf("Identity lookup failed for %s: %v", subject, err)
				http.Error(w, "identity lookup failed", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
