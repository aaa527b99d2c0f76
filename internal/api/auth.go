package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
)

// AuthProvider is the identity-provider tag account rows are keyed under.
const AuthProvider = "firebase"

// TokenVerifier is the slice of the Firebase auth client the middleware
// needs.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type contextKey string

const uidContextKey contextKey = "feeder-auth-uid"

// UIDFromContext returns the verified provider user id set by the auth
// middleware.
func UIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(uidContextKey).(string)
	return uid, ok
}

// NewFirebaseAuthMiddleware verifies the request's bearer ID token and puts
// the caller's uid on the request context. Requests without a valid token
// get a 401 and never reach the handler.
func NewFirebaseAuthMiddleware(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			idToken, found := strings.CutPrefix(header, "Bearer ")
			if !found || idToken == "" {
				writeJSON(w, http.StatusUnauthorized, "유효하지 않은 토큰입니다.", nil)
				return
			}

			decoded, err := verifier.VerifyIDToken(r.Context(), idToken)
			if err != nil {
				logger.Warn("ID token verification failed", "err", err)
				writeJSON(w, http.StatusUnauthorized, "유효하지 않은 토큰입니다.", nil)
				return
			}

			ctx := context.WithValue(r.Context(), uidContextKey, decoded.UID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
