package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-email-change/internal/domain"
	jwtinfra "github.com/go-email-change/internal/infrastructure/jwt"
)

type contextKey string

const SessionKey contextKey = "session"

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// SessionLookup reads a stored session by ID. Get must wrap domain.ErrNotFound on a miss.
type SessionLookup interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
}

// Auth returns middleware that validates the Bearer JWT and injects the caller's
// session into context. When sessions is non-nil the stored session must exist
// and be enabled.
func Auth(verifier TokenVerifier, sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header", domain.KindUnauthenticated)
				return
			}
			claims, err := verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token", domain.KindUnauthenticated)
				return
			}
			session := claims.Session()

			if sessions != nil {
				stored, err := sessions.Get(r.Context(), claims.SessionID)
				switch {
				case errors.Is(err, domain.ErrNotFound):
					writeJSONError(w, http.StatusUnauthorized, "session not found", domain.KindUnauthenticated)
					return
				case err != nil:
					slog.Error("session lookup failed", "session_id", claims.SessionID, "error", err)
					writeJSONError(w, http.StatusInternalServerError, "internal server error", domain.KindInternal)
					return
				case !stored.Enable || stored.UserID != claims.UserID:
					writeJSONError(w, http.StatusUnauthorized, "session revoked", domain.KindUnauthenticated)
					return
				}
				session = stored
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// WithSession stores the authenticated caller in ctx.
func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// SessionFromContext extracts the authenticated caller from the request context.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(SessionKey).(*domain.Session)
	return s, ok && s != nil
}
