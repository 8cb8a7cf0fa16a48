package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"groupman/internal/domain"
)

// Authenticate validates the Bearer token on every request and stores the
// resulting caller in the request context. Returns 401 when the token is
// missing or invalid.
func Authenticate(validator JWTValidator, mapping ClaimMapping, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
				return
			}

			claims, err := validator.Validate(r.Context(), strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				logger.Debug("token rejected", "error", err, "request_id", RequestIDFromContext(r.Context()))
				writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid bearer token")
				return
			}

			caller := domain.Caller{Name: mapping.Name(claims), Roles: mapping.Roles(claims)}
			if caller.Name == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "token carries no user name")
				return
			}
			next.ServeHTTP(w, r.WithContext(domain.WithCaller(r.Context(), caller)))
		})
	}
}

// RequireRole rejects callers lacking role with 403. It must run after
// Authenticate.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := domain.CallerFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "no authenticated caller")
				return
			}
			if !caller.HasRole(role) {
				writeError(w, http.StatusForbidden, "forbidden", "role "+role+" required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    status,
		"error":   kind,
		"message": message,
	})
}
